// Command taken_cache_debug lists or clears the registration "taken" markers
// kept in Redis.
//
//	go run ./internal/tools -addr 127.0.0.1:6379 -field email
//	go run ./internal/tools -field username -forget alice
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/redis"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:6379", "redis address host:port")
		pass    = flag.String("pass", "", "redis password")
		db      = flag.Int("db", 0, "redis db")
		field   = flag.String("field", "", "username or email; empty lists both")
		forget  = flag.String("forget", "", "drop the marker for this value (requires -field)")
		limit   = flag.Int64("count", 200, "SCAN COUNT hint")
		timeout = flag.Duration("timeout", 5*time.Second, "overall timeout")
	)
	flag.Parse()

	f := domain.Field(*field)
	if f != "" && f != domain.FieldUsername && f != domain.FieldEmail {
		fmt.Fprintf(os.Stderr, "invalid -field %q\n", *field)
		os.Exit(2)
	}

	c := redis.New(*addr, *pass, *db)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping failed: %v\n", err)
		os.Exit(1)
	}

	if *forget != "" {
		if f == "" {
			fmt.Fprintln(os.Stderr, "-forget requires -field")
			os.Exit(2)
		}
		ok, err := c.ForgetTaken(ctx, f, *forget)
		if err != nil {
			fmt.Fprintf(os.Stderr, "DEL error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("forgot %s=%q: %v\n", f, *forget, ok)
		return
	}

	fmt.Printf("Connected: addr=%s db=%d field=%q\n", c.Addr(), *db, *field)

	total := 0
	err := c.ScanTaken(ctx, f, *limit, func(e redis.TakenEntry) error {
		total++
		fmt.Printf("%d) %s=%q\n   ttl=%s\n", total, e.Field, e.Value, e.TTL)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "SCAN error: %v\n", err)
		os.Exit(1)
	}

	if total == 0 {
		fmt.Println("No markers cached.")
	}
}
