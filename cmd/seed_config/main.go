package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/oni-coach-backend/internal/app"
)

func main() {
	var list bool
	flag.BoolVar(&list, "list", false, "print every catalog key with its resolved value after seeding")
	flag.Parse()

	_ = godotenv.Load()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	provider := application.Services.Config
	n, err := provider.SeedCatalog(ctx)
	if err != nil {
		fmt.Printf("seed catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("inserted %d catalog defaults\n", n)

	if !list {
		return
	}
	for _, e := range provider.Catalog().Entries() {
		v, err := provider.Get(ctx, e.Key)
		if err != nil {
			fmt.Printf("%s: %v\n", e.Key, err)
			continue
		}
		fmt.Printf("%-28s %-12s (%s)\n", v.Key, v.Value, v.Source)
	}
}
