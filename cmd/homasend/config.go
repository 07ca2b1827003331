package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// daemonConfig holds the values homasend needs beyond the homa.Config
// it eventually builds: the local listen address and log level.
type daemonConfig struct {
	ListenAddr       string
	LogLevel         string
	LinkMbps         int
	MaxNICQueueNs    int64
	RTTBytes         int64
	ThrottleMinBytes int64
	MaxPrio          uint8
	CPUKHz           int64
	DontThrottle     bool
}

// setupFlags registers homasend's command-line flags, adapted from
// rpingmesh's flag/viper split: flags name the same keys viper reads
// from a config file or environment, so either source can win
// depending on precedence.
func setupFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a homasend config file (yaml)")
	fs.String("listen-addr", "", "local UDP address to bind for outbound packets")
	fs.String("log-level", "", "debug, info, error, or nothing")
	fs.Int("link-mbps", 0, "modelled link rate in megabits/second")
	fs.Int64("max-nic-queue-ns", 0, "NIC transmit queue delay tolerance, in nanoseconds")
	fs.Int64("rtt-bytes", 0, "unscheduled-byte budget for new messages")
	fs.Int64("throttle-min-bytes", 0, "messages at or below this size bypass pacing")
	fs.Uint8("max-prio", 0, "highest link-layer priority level")
	fs.Int64("cpu-khz", 0, "assumed frequency of the link-idle clock's cycle counter")
	fs.Bool("dont-throttle", false, "never enqueue onto the throttled list")
	fs.Bool("version", false, "print version and exit")
}

// loadConfig resolves daemonConfig from flags, a config file, and
// HOMASEND_-prefixed environment variables, in viper's usual
// precedence order (explicit flag > env > file > default).
func loadConfig(fs *pflag.FlagSet) (*daemonConfig, error) {
	v := viper.New()

	v.SetDefault("listen-addr", ":0")
	v.SetDefault("log-level", "info")
	v.SetDefault("link-mbps", 10000)
	v.SetDefault("max-nic-queue-ns", 200000)
	v.SetDefault("rtt-bytes", 10000)
	v.SetDefault("throttle-min-bytes", 1000)
	v.SetDefault("max-prio", 7)
	v.SetDefault("cpu-khz", 1000000)
	v.SetDefault("dont-throttle", false)

	v.SetEnvPrefix("HOMASEND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return &daemonConfig{
		ListenAddr:       v.GetString("listen-addr"),
		LogLevel:         v.GetString("log-level"),
		LinkMbps:         v.GetInt("link-mbps"),
		MaxNICQueueNs:    v.GetInt64("max-nic-queue-ns"),
		RTTBytes:         v.GetInt64("rtt-bytes"),
		ThrottleMinBytes: v.GetInt64("throttle-min-bytes"),
		MaxPrio:          uint8(v.GetUint32("max-prio")),
		CPUKHz:           v.GetInt64("cpu-khz"),
		DontThrottle:     v.GetBool("dont-throttle"),
	}, nil
}
