package stosh

// DataSource is the input to LoadData: a JSON data file, no data, or
// in-memory values (currently rejected).
type DataSource interface {
	dataSource()
}

type dataFile string

type noData struct{}

type dataValues map[string]any

func (dataFile) dataSource()   {}
func (noData) dataSource()     {}
func (dataValues) dataSource() {}

// DataFile names a JSON data file on disk.
func DataFile(path string) DataSource { return dataFile(path) }

// NoData is for models without a data block.
func NoData() DataSource { return noData{} }

// DataValues carries data in memory. LoadData rejects it with
// ErrUnsupportedInput; write the values to a JSON file and use DataFile.
func DataValues(v map[string]any) DataSource { return dataValues(v) }
