package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/betbot/xchange/pkg/config"
	"github.com/betbot/xchange/pkg/secretstore"
)

// env2badger copies XCHANGE_<EXCHANGE>_API_KEY / _SECRET_KEY / _USERNAME
// entries from a .env file into the encrypted secret store.
func main() {
	var (
		inPath    = flag.String("in", ".env", "input .env file path")
		dbPath    = flag.String("badger", config.GetEnv("XCHANGE_SECRET_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", config.GetEnv(config.EnvSecretKey, ""), "badger encryption key (32 bytes base64/hex)")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set %s or pass -secret-key", config.EnvSecretKey))
	}

	kv, err := godotenv.Read(*inPath)
	if err != nil {
		fatal(err)
	}
	creds := collectCredentials(kv)
	if len(creds) == 0 {
		fatal(fmt.Errorf("no XCHANGE_<EXCHANGE>_API_KEY/SECRET_KEY/USERNAME entries in %s", *inPath))
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	names := make([]string, 0, len(creds))
	for name := range creds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ss.PutExchangeCredentials(name, creds[name]); err != nil {
			fatal(err)
		}
	}

	fmt.Fprintf(os.Stderr, "imported credentials for %s into %s\n", strings.Join(names, ", "), *dbPath)
}

var credentialSuffixes = []string{"_API_KEY", "_SECRET_KEY", "_USERNAME"}

// collectCredentials groups recognised entries by lower-case exchange name.
func collectCredentials(kv map[string]string) map[string]secretstore.Credentials {
	out := map[string]secretstore.Credentials{}
	for k, v := range kv {
		if !strings.HasPrefix(k, "XCHANGE_") || v == "" {
			continue
		}
		rest := strings.TrimPrefix(k, "XCHANGE_")
		for _, suffix := range credentialSuffixes {
			if !strings.HasSuffix(rest, suffix) {
				continue
			}
			name := strings.ToLower(strings.TrimSuffix(rest, suffix))
			if name == "" {
				break
			}
			c := out[name]
			switch suffix {
			case "_API_KEY":
				c.APIKey = v
			case "_SECRET_KEY":
				c.SecretKey = v
			case "_USERNAME":
				c.Username = v
			}
			out[name] = c
			break
		}
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
