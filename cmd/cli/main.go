package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

const usage = "expected one of 'export', 'import', 'purge', 'stats' or 'token' subcommands"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()

	// token needs no database
	if os.Args[1] == "token" {
		tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
		subject := tokenCmd.String("sub", "", "token subject (user id or email)")
		ttl := tokenCmd.Duration("ttl", cfg.JWTExpiration, "token lifetime")
		_ = tokenCmd.Parse(os.Args[2:])
		if *subject == "" {
			tokenCmd.PrintDefaults()
			os.Exit(1)
		}
		token, expiresAt, err := handler.IssueToken([]byte(cfg.JWTSecret), *subject, *ttl)
		if err != nil {
			log.Fatalf("Sign failed: %v", err)
		}
		fmt.Println(token)
		log.Printf("expires at %s", expiresAt.Format(time.RFC3339))
		return
	}

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	switch os.Args[1] {
	case "export":
		exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
		_ = exportCmd.Parse(os.Args[2:])
		if err := doExport(ctx, repo, os.Stdout); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	case "import":
		importCmd := flag.NewFlagSet("import", flag.ExitOnError)
		importFile := importCmd.String("file", "", "JSON file to import")
		_ = importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		file, err := os.Open(*importFile)
		if err != nil {
			log.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()
		n, err := doImport(ctx, repo, file, limitsFrom(cfg))
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		log.Printf("Imported %d links", n)
	case "purge":
		purgeCmd := flag.NewFlagSet("purge", flag.ExitOnError)
		_ = purgeCmd.Parse(os.Args[2:])
		svc := services.NewLinkService(repo, discardClicks{})
		n, err := svc.PurgeExpired(ctx)
		if err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
		fmt.Printf("purged %d expired links\n", n)
	case "stats":
		stats, err := repo.Stats(ctx)
		if err != nil {
			log.Fatalf("Stats failed: %v", err)
		}
		fmt.Printf("links=%d clicks=%d avg=%.2f\n", stats.TotalLinks, stats.TotalClicks, stats.AvgClicks)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// discardClicks satisfies the service for commands that never resolve.
type discardClicks struct{}

func (discardClicks) Record(string) {}

func doExport(ctx context.Context, repo ports.LinkRepository, w io.Writer) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

// importLimits carries the settings records are validated against.
type importLimits struct {
	codeLength   int
	maxURLLength int
}

func limitsFrom(cfg *config.Config) importLimits {
	return importLimits{codeLength: cfg.ShortCodeLength, maxURLLength: cfg.MaxURLLength}
}

// doImport inserts every valid link from r whose code is not already taken,
// keeping ids, counters and timestamps.
func doImport(ctx context.Context, repo ports.LinkRepository, r io.Reader, limits importLimits) (int, error) {
	var links []domain.ShortLink
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	count := 0
	for i := range links {
		l := &links[i]
		if err := checkImported(l, limits); err != nil {
			log.Printf("Skipping %q: %v", l.Code, err)
			continue
		}
		exists, err := repo.ExistsByCode(ctx, l.Code)
		if err != nil {
			return count, err
		}
		if exists {
			log.Printf("Skipping existing code: %s", l.Code)
			continue
		}

		if err := repo.Create(ctx, l); err != nil {
			log.Printf("Failed to import %s: %v", l.Code, err)
			continue
		}
		count++
	}
	return count, nil
}

// checkImported applies the rules Create enforces and fills missing ids and
// timestamps.
func checkImported(l *domain.ShortLink, limits importLimits) error {
	if err := services.ValidateStoredCode(l.Code, limits.codeLength); err != nil {
		return err
	}
	target, err := services.ValidateTargetURL(l.TargetURL, limits.maxURLLength)
	if err != nil {
		return err
	}
	l.TargetURL = target

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(l.CreatedAt) {
		return fmt.Errorf("expires_at %s is not after created_at %s",
			l.ExpiresAt.Format(time.RFC3339), l.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
