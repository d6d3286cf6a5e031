package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/tendant/resource-hub/pkg/hub"
	"github.com/tendant/resource-hub/pkg/hub/api"
	"github.com/tendant/resource-hub/pkg/hub/config"
	"github.com/tendant/resource-hub/pkg/hub/identity"
)

const usage = `Resource Hub CLI

Browse, contribute and maintain study materials using the same stores as the server.

USAGE:
  hubctl <command> [options]

COMMANDS:
  list       List materials with optional search, filters and sort
  upload     Upload a file as a new material
  download   Record a download and print (or save) the file
  sweep      Delete stored files that no material references
  catalog    Print branches, semesters, years and subjects
  profile    Set the display name shown next to your uploads
  token      Issue a bearer token for the server (requires JWT_SECRET)

ENVIRONMENT VARIABLES:
  HUB_USER_ID       UUID of the acting user (upload, download, profile, token)
  HUB_USER_NAME     Display name of the acting user

  All server variables (DATABASE_URL, STORAGE_URL, ...) apply; run
  "hubctl help env" to list them. Configuration can be loaded from a .env
  file in the current directory.

EXAMPLES:
  hubctl list --branch="Computer Science" --semester=3 --sort=popular
  hubctl list --search=database --json
  hubctl upload --title="DBMS Unit 1" --branch="Computer Science" --semester=3 notes.pdf
  hubctl download --out=notes.pdf 550e8400-e29b-41d4-a716-446655440000
  hubctl sweep --dry-run
  hubctl token --ttl=24h
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "help", "--help", "-h":
		if len(os.Args) > 2 && os.Args[2] == "env" {
			fmt.Println(config.Usage())
		} else {
			fmt.Print(usage)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	provider, err := identityFromEnv()
	if err != nil {
		log.Fatalf("Invalid HUB_USER_ID: %v", err)
	}

	ctx := context.Background()
	rt, err := cfg.Build(ctx, logger, provider)
	if err != nil {
		log.Fatalf("Failed to build runtime: %v", err)
	}
	defer rt.Close()

	args := os.Args[2:]
	switch command {
	case "list":
		err = handleList(ctx, rt, args)
	case "upload":
		err = handleUpload(ctx, rt, args)
	case "download":
		err = handleDownload(ctx, rt, args)
	case "sweep":
		err = handleSweep(ctx, rt, args)
	case "catalog":
		err = printJSON(rt.Hub.Catalog())
	case "profile":
		err = handleProfile(ctx, rt, args)
	case "token":
		err = handleToken(rt, provider, args)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
	if err != nil {
		n := hub.Notify(err)
		fmt.Fprintf(os.Stderr, "%s: %s\n", n.Title, n.Description)
		logger.Debug("Command failed", "command", command, "err", err)
		os.Exit(1)
	}
}

// identityFromEnv returns the acting user, or an anonymous provider when
// HUB_USER_ID is unset.
func identityFromEnv() (hub.StaticIdentity, error) {
	raw := os.Getenv("HUB_USER_ID")
	if raw == "" {
		return hub.StaticIdentity{}, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return hub.StaticIdentity{}, err
	}
	return hub.StaticIdentity{Identity: &hub.Identity{ID: id, DisplayName: os.Getenv("HUB_USER_NAME")}}, nil
}

func filterFlags(fs *flag.FlagSet) (*string, *hub.FilterSet) {
	var f hub.FilterSet
	search := fs.String("search", "", "case-insensitive text in title, description or subject")
	fs.StringVar(&f.Branch, "branch", "", "branch")
	fs.StringVar(&f.Semester, "semester", "", "semester (1-8)")
	fs.StringVar(&f.Year, "year", "", "academic year")
	fs.StringVar(&f.Subject, "subject", "", "exact subject")
	return search, &f
}

func handleList(ctx context.Context, rt *config.Runtime, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	search, filters := filterFlags(fs)
	sort := fs.String("sort", string(hub.SortRecent), "recent, popular or rating")
	useJSON := fs.Bool("json", false, "output as JSON")
	_ = fs.Parse(args)

	engine := rt.Hub.NewEngine()
	if err := engine.SetSort(hub.SortMode(*sort)); err != nil {
		return err
	}
	if err := engine.Fetch(ctx, *search, *filters); err != nil {
		return err
	}
	view := engine.View()

	if *useJSON {
		return printJSON(view)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tBRANCH\tSEM\tYEAR\tTYPE\tDOWNLOADS\tRATING\tUPLOADED BY\tCREATED\n")
	for _, m := range view.Materials {
		uploader := m.UploaderName
		if uploader == "" {
			uploader = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%.1f\t%s\t%s\n",
			m.ID.String()[:8]+"...",
			truncate(m.Title, 30),
			truncate(m.Branch, 20),
			m.Semester,
			m.Year,
			m.FileType,
			m.Downloads,
			m.Rating,
			truncate(uploader, 20),
			m.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d  Downloads: %d  Mean rating: %.2f\n",
		view.Stats.Count, view.Stats.TotalDownloads, view.Stats.MeanRating)
	return nil
}

func handleUpload(ctx context.Context, rt *config.Runtime, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	var draft hub.SubmissionDraft
	fs.StringVar(&draft.Title, "title", "", "material title (required)")
	fs.StringVar(&draft.Branch, "branch", "", "branch (required)")
	fs.StringVar(&draft.Semester, "semester", "", "semester (required)")
	fs.StringVar(&draft.Year, "year", "", "academic year")
	fs.StringVar(&draft.Subject, "subject", "", "subject")
	fs.StringVar(&draft.SubjectCode, "subject-code", "", "subject code")
	fs.StringVar(&draft.Description, "description", "", "description")
	_ = fs.Parse(args)

	if fs.NArg() == 1 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		draft.File = &hub.FileUpload{
			Name:     filepath.Base(f.Name()),
			Size:     info.Size(),
			MimeType: mime.TypeByExtension(filepath.Ext(f.Name())),
			Reader:   f,
		}
	}

	pipeline, err := rt.Hub.Pipeline()
	if err != nil {
		return err
	}
	id, err := pipeline.Submit(ctx, draft)
	if err != nil {
		return err
	}

	fmt.Println(hub.MessageUploadSuccess)
	fmt.Printf("Material ID: %s\n", id)
	return nil
}

func handleDownload(ctx context.Context, rt *config.Runtime, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	out := fs.String("out", "", "save the file here instead of printing its URL")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return &hub.ValidationError{MissingFields: []string{"material id"}}
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return &hub.ValidationError{Invalid: []string{"material id"}}
	}

	material, err := rt.Hub.Tracker(nil).Download(ctx, id)
	if material == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", hub.Notify(err).Description)
	}

	opener, ok := rt.BlobStore.(api.Opener)
	if *out == "" || !ok {
		fmt.Println(hub.MessageDownloadStarted)
		fmt.Println(material.FileURL)
		return nil
	}

	rc, _, err := opener.Open(ctx, material.FilePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", material.FilePath, err)
	}
	defer rc.Close()
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Saved %q to %s\n", material.Title, *out)
	return nil
}

func handleSweep(ctx context.Context, rt *config.Runtime, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	prefix := fs.String("prefix", "", "only consider keys with this prefix")
	grace := fs.Duration("grace", rt.Config.Hub.SweepGrace, "skip files younger than this")
	dryRun := fs.Bool("dry-run", false, "report without deleting")
	useJSON := fs.Bool("json", false, "output as JSON")
	_ = fs.Parse(args)

	sweeper, err := rt.Hub.Sweeper(*grace)
	if err != nil {
		return err
	}
	report, err := sweeper.Sweep(ctx, *prefix, *dryRun)
	if err != nil {
		return err
	}

	if *useJSON {
		return printJSON(report)
	}
	verb := "Deleted"
	if *dryRun {
		verb = "Would delete"
	}
	for _, key := range report.Deleted {
		fmt.Printf("%s %s\n", verb, key)
	}
	for _, key := range report.Failed {
		fmt.Printf("Failed %s\n", key)
	}
	fmt.Printf("\nScanned: %d  Referenced: %d  Too recent: %d  %s: %d  Failed: %d\n",
		report.Scanned, report.Referenced, report.TooRecent, verb, len(report.Deleted), len(report.Failed))
	if len(report.Failed) > 0 {
		return errors.New("some orphaned files could not be deleted")
	}
	return nil
}

func handleProfile(ctx context.Context, rt *config.Runtime, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "display name (default: HUB_USER_NAME)")
	_ = fs.Parse(args)

	p, err := rt.Hub.UpdateProfile(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Printf("Display name set to %q\n", p.FullName)
	return nil
}

func handleToken(rt *config.Runtime, provider hub.StaticIdentity, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	if rt.TokenAuth == nil {
		return errors.New("JWT_SECRET is not set")
	}
	if provider.Identity == nil {
		return hub.ErrAuthenticationRequired
	}
	token, err := identity.IssueToken(rt.TokenAuth, *provider.Identity, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
