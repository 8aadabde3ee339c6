package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	verbose bool
	version bool

	redis         string
	redisPassword string
	redisDB       int

	maxPlayers     int
	sessionTimeout time.Duration

	getReadyTime  time.Duration
	modifierTime  time.Duration
	questionTime  time.Duration
	answeredDelay time.Duration
	endIntroTime  time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPlayers < 1 {
		return fmt.Errorf("invalid max players: %d", c.maxPlayers)
	}
	for _, d := range []time.Duration{c.getReadyTime, c.modifierTime, c.questionTime, c.endIntroTime, c.sessionTimeout} {
		if d <= 0 {
			return errors.New("phase durations and timeouts must be positive")
		}
	}
	if c.answeredDelay < 0 {
		return errors.New("--answered-delay must not be negative")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizbox",
		Short:         "A live multiplayer quiz server: one host screen, many players, one websocket game loop.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZBOX_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: QUIZBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: QUIZBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: QUIZBOX_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: QUIZBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: QUIZBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: QUIZBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: QUIZBOX_VERSION)")

	fs.StringVar(&cfg.redis, "redis", "", "redis address for durable game state; empty uses in-memory storage (env: QUIZBOX_REDIS)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: QUIZBOX_REDIS_PASSWORD)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: QUIZBOX_REDIS_DB)")

	fs.IntVar(&cfg.maxPlayers, "max-players", 50, "maximum players per game (env: QUIZBOX_MAX_PLAYERS)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before games with no connections are ended (env: QUIZBOX_SESSION_TIMEOUT)")

	fs.DurationVar(&cfg.getReadyTime, "get-ready-time", 5*time.Second, "countdown before the first question (env: QUIZBOX_GET_READY_TIME)")
	fs.DurationVar(&cfg.modifierTime, "modifier-time", 4*time.Second, "how long the question modifier screen is shown (env: QUIZBOX_MODIFIER_TIME)")
	fs.DurationVar(&cfg.questionTime, "question-time-limit", 20*time.Second, "answer window per question (env: QUIZBOX_QUESTION_TIME_LIMIT)")
	fs.DurationVar(&cfg.answeredDelay, "answered-delay", 2*time.Second, "delay before revealing once everyone has answered (env: QUIZBOX_ANSWERED_DELAY)")
	fs.DurationVar(&cfg.endIntroTime, "end-intro-time", 5*time.Second, "pause before the final result is revealed (env: QUIZBOX_END_INTRO_TIME)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("quizbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
