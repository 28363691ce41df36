// lockctl is a maintenance tool for lock records. It talks directly to the
// storage backend; it never holds locks itself.
//
// Usage:
//
//	lockctl [flags] cleanup
//	lockctl [flags] peek <resource>
//	lockctl [flags] release <resource> <holder>
//
// Flags can also be set through the environment with a LOCKCTL_ prefix,
// e.g. LOCKCTL_DB_URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jamiealquiza/envy"

	"github.com/ArdentAILabs/benchlock/lock"
	"github.com/ArdentAILabs/benchlock/store/postgres"
	"github.com/ArdentAILabs/benchlock/store/redis"
	"github.com/ArdentAILabs/benchlock/types"
)

// Config holds
// config parameters.
type Config struct {
	DBURL    string
	RedisURL string
	Timeout  time.Duration
}

var (
	// This can be set with -ldflags "-X main.version=x.x.x"
	version = "0.0.0"
	config  = &Config{}
)

func init() {
	v := flag.Bool("version", false, "version")
	flag.StringVar(&config.DBURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&config.RedisURL, "redis-url", "", "Redis URL (used when -db-url is unset)")
	flag.DurationVar(&config.Timeout, "timeout", 10*time.Second, "Per-operation timeout")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] <cleanup | peek <resource> | release <resource> <holder>>\n\nFlags:\n",
			os.Args[0])
		flag.PrintDefaults()
	}

	envy.Parse("LOCKCTL")
	flag.Parse()

	if *v {
		fmt.Println(version)
		os.Exit(0)
	}
}

func main() {
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	store, err := openStore(ctx)
	exitOnErr(err)
	defer store.Close()

	switch args[0] {
	case "cleanup":
		deleted, err := store.CleanupExpired(ctx)
		exitOnErr(err)
		fmt.Printf("Deleted %d expired lock record(s)\n", deleted)
	case "peek":
		if len(args) != 2 {
			exitOnErr(fmt.Errorf("usage: peek <resource>"))
		}
		held, err := store.PeekStatus(ctx, types.ResourceID(args[1]))
		exitOnErr(err)
		if held {
			fmt.Printf("%s: held\n", args[1])
		} else {
			fmt.Printf("%s: free\n", args[1])
		}
	case "release":
		if len(args) != 3 {
			exitOnErr(fmt.Errorf("usage: release <resource> <holder>"))
		}
		released, err := store.Release(ctx, types.ResourceID(args[1]), types.HolderID(args[2]))
		exitOnErr(err)
		if released {
			fmt.Printf("Released %s held by %s\n", args[1], args[2])
		} else {
			fmt.Printf("No live record for %s held by %s\n", args[1], args[2])
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
}

// openStore picks the backend from the configured URLs, preferring
// PostgreSQL when both are set.
func openStore(ctx context.Context) (lock.Store, error) {
	switch {
	case config.DBURL != "":
		return postgres.Open(ctx, config.DBURL)
	case config.RedisURL != "":
		return redis.Open(ctx, config.RedisURL)
	default:
		return nil, fmt.Errorf("one of -db-url or -redis-url is required")
	}
}

func exitOnErr(e error) {
	if e != nil {
		fmt.Println(e)
		os.Exit(1)
	}
}
