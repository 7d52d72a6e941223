package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/service"
	"gorm.io/gorm/logger"
)

func main() {
	var dbPath string
	var sets string
	flag.StringVar(&dbPath, "db", db.DefaultPath, "sqlite db path")
	flag.StringVar(&sets, "sets", "", "comma-separated caption set ids (default: all)")
	flag.Parse()

	gdb, err := db.Open(dbPath, logger.Warn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init db: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close(gdb) }()

	setSvc := service.NewCaptionSetService(gdb, nil)
	fixed, err := setSvc.RecountCaptions(context.Background(), splitCSV(sets))
	if err != nil {
		fmt.Fprintf(os.Stderr, "recount captions: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("done: corrected caption_count on %d caption sets\n", fixed)
}

func splitCSV(value string) []string {
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
