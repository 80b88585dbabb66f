package config

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level machdocs configuration, corresponding to
// .machdocs.yml.
type Config struct {
	MachinesDir       string       `yaml:"machines_dir" koanf:"machines_dir"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	OllamaURL         string       `yaml:"ollama_url" koanf:"ollama_url"`
	ChunkSize         int          `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap      int          `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	KeywordWeight     float64      `yaml:"keyword_weight" koanf:"keyword_weight"`
	SemanticWeight    float64      `yaml:"semantic_weight" koanf:"semantic_weight"`
	MaxConcurrency    int          `yaml:"max_concurrency" koanf:"max_concurrency"`
	DocumentTimeout   int          `yaml:"document_timeout_seconds" koanf:"document_timeout_seconds"`
	Include           []string     `yaml:"include" koanf:"include"`
	Exclude           []string     `yaml:"exclude" koanf:"exclude"`
	ServerPort        int          `yaml:"server_port" koanf:"server_port"`
}

// DefaultExcludes are glob patterns excluded from scanning by default.
var DefaultExcludes = []string{
	".git/**",
	"**/.DS_Store",
	"**/~$*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MachinesDir:       "machines",
		DataDir:           ".machdocs",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		OllamaURL:         "http://localhost:11434",
		ChunkSize:         800,
		ChunkOverlap:      100,
		KeywordWeight:     0.5,
		SemanticWeight:    0.5,
		MaxConcurrency:    4,
		DocumentTimeout:   120,
		Include:           []string{"**/*.pdf", "**/*.txt", "**/*.md"},
		Exclude:           DefaultExcludes,
		ServerPort:        8321,
	}
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return c.DataDir + "/machdocs.db"
}

// VectorDir returns where the vector store persists its data.
func (c *Config) VectorDir() string {
	return c.DataDir + "/vectors"
}
