package cfg

type Cfg struct {
	// Application configuration
	DataDir          string
	DBPath           string
	Port             string
	APIAccessKey     string
	SchedulerEnabled bool
	ScheduleTimes    string
	ItemsPerSource   int
	TranslateBatch   int
	SourcesSeedFile  string

	// LLM provider credentials, at most one is used
	KimiAPIKey   string
	OpenAIAPIKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
