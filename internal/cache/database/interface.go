package database

type FileRecord struct {
	Path         string
	LastModified int64
}

// SymbolKind tells the three symbol tables apart.
type SymbolKind string

const (
	KindLabel   SymbolKind = "label"
	KindBibKey  SymbolKind = "bibkey"
	KindCommand SymbolKind = "command"
)

type SymbolRecord struct {
	FilePath  string
	Kind      SymbolKind
	Key       string
	Info      string
	Line      int
	EndLine   int
	Offset    int
	Length    int
	Arguments int
	// Params holds the parameter kinds of a command, one digit each.
	Params  string
	Context int
}

type Database interface {
	// Transaction handling
	WithTx(fn func(tx Transaction) error) error

	// File operations
	GetFile(path string) (*FileRecord, error)
	GetAllFiles() ([]FileRecord, error)
	DeleteFile(path string) error

	// Symbol operations
	GetSymbols(path string) ([]SymbolRecord, error)

	// Maintenance
	Clear() error
	Close() error
}

type Transaction interface {
	UpsertFile(file *FileRecord) error
	ReplaceSymbols(path string, symbols []SymbolRecord) error
}
