package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-dr string  data root (raw regions)
//	-sr string  storage root (index regions)
//	-e string   retrieval engine name ("local" or "chroma")
//	-k int      retrieval top-K
//	-m float    minimum relevance threshold
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-dr", "-sr", "-e", "-k", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.DataRoot, "dr", config.DataRoot, "root directory for raw document regions")
	fs.StringVar(&config.StorageRoot, "sr", config.StorageRoot, "root directory for index regions")
	fs.StringVar(&config.Engine, "e", config.Engine, "retrieval engine (local|chroma)")
	fs.IntVar(&config.TopK, "k", config.TopK, "retrieval top-K")
	fs.Float64Var(&config.MinRelevance, "m", config.MinRelevance, "minimum relevance threshold")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
