package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/openlend/lendcore/internal/flagx"
	"github.com/openlend/lendcore/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds. After unmarshalling,
// non-zero fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	AdminAccount          string         `json:"admin_account"`
	EngineAccount         string         `json:"engine_account"`
	FeeSinkAccount        string         `json:"fee_sink_account"`
	EscrowAccount         string         `json:"escrow_account"`
	ProtocolFeeBps        int            `json:"protocol_fee_bps"`
	MaxActiveOffers       int            `json:"max_active_offers"`
	RelayerQuorum         int            `json:"relayer_quorum"`
	Relayers              []string       `json:"relayers"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. When no file is named, nothing
// is loaded. An unreadable or invalid file panics: a half-applied config is
// worse than a refusal to start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	if c.AdminAccount != "" {
		config.AdminAccount = c.AdminAccount
	}
	if c.EngineAccount != "" {
		config.EngineAccount = c.EngineAccount
	}
	if c.FeeSinkAccount != "" {
		config.FeeSinkAccount = c.FeeSinkAccount
	}
	if c.EscrowAccount != "" {
		config.EscrowAccount = c.EscrowAccount
	}
	if c.ProtocolFeeBps != 0 {
		config.ProtocolFeeBps = c.ProtocolFeeBps
	}
	if c.MaxActiveOffers != 0 {
		config.MaxActiveOffers = c.MaxActiveOffers
	}
	if c.RelayerQuorum != 0 {
		config.RelayerQuorum = c.RelayerQuorum
	}
	if len(c.Relayers) > 0 {
		config.Relayers = c.Relayers
	}
}
