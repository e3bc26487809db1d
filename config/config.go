// Package config builds the process configuration from flags, the
// environment and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"voting-ledger/fault"
	"voting-ledger/ledger"
	"voting-ledger/mirror"
	"voting-ledger/notify"
	"voting-ledger/storage"
)

// Mirror backends
const (
	MirrorNone      = "none"
	MirrorFirestore = "firestore"
	MirrorLevelDB   = "leveldb"
)

// Defaults
const (
	DefaultPort          = 5000
	DefaultDatabaseURL   = "data/voting.db"
	DefaultMirrorPath    = "data/mirror"
	DefaultLedgerKeyPath = "data/ledger_key.json"
	DefaultLogDir        = "log"
	DefaultLogLevel      = "info"
	DefaultVoteRate      = 1.0
	DefaultVoteBurst     = 5
	DefaultVoteQueueSize = 256
)

type Config struct {
	Port           int
	DatabaseType   string
	DatabaseURL    string
	ElectionID     string
	PollingStation string

	Mirror     string
	MirrorPath string
	Firestore  mirror.FirestoreCredentials

	Twilio         notify.TwilioConfig
	SMSCountryCode string

	LedgerKeyPath string
	LogDir        string
	LogLevel      string

	VoteRate      float64
	VoteBurst     int
	VoteQueueSize int

	// TrustProxy honours X-Forwarded-For and X-Real-IP when the server runs
	// behind a reverse proxy
	TrustProxy bool
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("voting-ledger", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.Mirror, "mirror", "", "Mirror store (none, firestore or leveldb)")
	fs.StringVar(&cfg.MirrorPath, "mirror-path", "", "LevelDB mirror directory")
	fs.StringVar(&cfg.ElectionID, "election", "", "Election identifier recorded in blocks")
	fs.StringVar(&cfg.PollingStation, "station", "", "Polling station recorded in blocks")
	fs.StringVar(&cfg.LedgerKeyPath, "key", "", "Ledger signing key file")
	fs.StringVar(&cfg.LogDir, "log-dir", "", "Log directory")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level")
	fs.Float64Var(&cfg.VoteRate, "vote-rate", 0, "Cast vote requests per second per client")
	fs.IntVar(&cfg.VoteBurst, "vote-burst", 0, "Cast vote burst per client")
	fs.IntVar(&cfg.VoteQueueSize, "vote-queue", 0, "Casts that may wait for the ledger")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", false, "Take client addresses from proxy headers")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", DefaultPort)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}

	cfg.DatabaseType = firstOf(cfg.DatabaseType, os.Getenv("DATABASE_TYPE"), storage.SQLite)
	if cfg.DatabaseType != storage.SQLite && cfg.DatabaseType != storage.Postgres {
		return Config{}, fmt.Errorf("%w: %s", fault.ErrUnknownDatabaseType, cfg.DatabaseType)
	}

	cfg.DatabaseURL = firstOf(cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType == storage.Postgres {
			return Config{}, errors.New("database URL required for postgres (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = DefaultDatabaseURL
	}

	cfg.ElectionID = firstOf(cfg.ElectionID, os.Getenv("ELECTION_ID"), ledger.DefaultElectionID)
	cfg.PollingStation = firstOf(cfg.PollingStation, os.Getenv("POLLING_STATION"), ledger.DefaultPollingStation)

	cfg.Firestore = mirror.FirestoreCredentials{
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		ClientEmail:     os.Getenv("FIREBASE_CLIENT_EMAIL"),
		PrivateKey:      os.Getenv("FIREBASE_PRIVATE_KEY"),
		CredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
	}

	// firestore is chosen implicitly when its credentials are present
	defaultMirror := MirrorNone
	if cfg.Firestore.CredentialsFile != "" || (cfg.Firestore.ClientEmail != "" && cfg.Firestore.PrivateKey != "") {
		defaultMirror = MirrorFirestore
	}
	cfg.Mirror = firstOf(cfg.Mirror, os.Getenv("MIRROR"), defaultMirror)
	switch cfg.Mirror {
	case MirrorNone, MirrorLevelDB:
	case MirrorFirestore:
		if cfg.Firestore.ProjectID == "" {
			return Config{}, errors.New("FIREBASE_PROJECT_ID required for the firestore mirror")
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", fault.ErrUnknownMirrorType, cfg.Mirror)
	}
	cfg.MirrorPath = firstOf(cfg.MirrorPath, os.Getenv("MIRROR_PATH"), DefaultMirrorPath)

	cfg.Twilio = notify.TwilioConfig{
		AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
	}
	cfg.SMSCountryCode = firstOf(os.Getenv("SMS_COUNTRY_CODE"), notify.DefaultCountryCode)

	cfg.LedgerKeyPath = firstOf(cfg.LedgerKeyPath, os.Getenv("LEDGER_KEY_PATH"), DefaultLedgerKeyPath)
	cfg.LogDir = firstOf(cfg.LogDir, os.Getenv("LOG_DIR"), DefaultLogDir)
	cfg.LogLevel = firstOf(cfg.LogLevel, os.Getenv("LOG_LEVEL"), DefaultLogLevel)

	if cfg.VoteRate == 0 {
		rate, err := envFloat("VOTE_RATE", DefaultVoteRate)
		if err != nil {
			return Config{}, err
		}
		cfg.VoteRate = rate
	}
	if cfg.VoteBurst == 0 {
		burst, err := envInt("VOTE_BURST", DefaultVoteBurst)
		if err != nil {
			return Config{}, err
		}
		cfg.VoteBurst = burst
	}
	if cfg.VoteQueueSize == 0 {
		size, err := envInt("VOTE_QUEUE_SIZE", DefaultVoteQueueSize)
		if err != nil {
			return Config{}, err
		}
		cfg.VoteQueueSize = size
	}
	if !cfg.TrustProxy {
		trust, err := envBool("TRUST_PROXY")
		if err != nil {
			return Config{}, err
		}
		cfg.TrustProxy = trust
	}

	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return f, nil
}

func envBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s env variable", key)
	}
	return b, nil
}
