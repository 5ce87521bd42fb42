package config

import (
	"flag"
	"os"

	"github.com/openlend/lendcore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-f int      protocol fee, basis points
//	-o int      max simultaneously active offers per account
//	-q int      relayer quorum for cross-chain locks
//
// os.Args is first filtered to only the flags handled here using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-f", "-o", "-q"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.ProtocolFeeBps, "f", config.ProtocolFeeBps, "protocol fee (basis points)")
	fs.IntVar(&config.MaxActiveOffers, "o", config.MaxActiveOffers, "max active offers per account")
	fs.IntVar(&config.RelayerQuorum, "q", config.RelayerQuorum, "relayer quorum")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
