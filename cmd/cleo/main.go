package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/SuperCoolPencil/CLEO/internal/auth"
	calclient "github.com/SuperCoolPencil/CLEO/internal/calendar"
	"github.com/SuperCoolPencil/CLEO/internal/config"
	"github.com/SuperCoolPencil/CLEO/internal/event"
	"github.com/SuperCoolPencil/CLEO/internal/llm"
	"github.com/SuperCoolPencil/CLEO/internal/mail"
	"github.com/SuperCoolPencil/CLEO/internal/pipeline"
)

const banner = `
    ░█████╗░██╗░░░░░███████╗░█████╗░
    ██╔══██╗██║░░░░░██╔════╝██╔══██╗
    ██║░░╚═╝██║░░░░░█████╗░░██║░░██║
    ██║░░██╗██║░░░░░██╔══╝░░██║░░██║
    ╚█████╔╝███████╗███████╗╚█████╔╝
    ░╚════╝░╚══════╝╚══════╝░╚════╝░
`

func printHelp() {
	fmt.Fprintf(os.Stderr, `CLEO - Calendar Events from Email, Organized

Reads recent messages from your Gmail inbox, extracts event dates, times
and venues from the free text, and inserts the resulting events into a
Google Calendar (or a local .ics file) after checking for conflicts.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help                Show this help message and exit
    --config FILE             Path to JSON config file (optional)
                              All settings can be specified in the config file
    --credentials PATH        Path to Google OAuth credentials JSON file
                              (overrides config file and CLEO_CREDENTIALS_PATH env var)
    --token PATH              Path to store the OAuth token (default: "token.json")
    --calendar-name NAME      Name of the calendar to create/use (default: "CLEO")
    --calendar-color-id ID    Color ID for the calendar (default: "7")
    --calendar-type TYPE      "google" or "ics" (default: "google")
    --ics-path PATH           Destination .ics file for the ics calendar type
    --timezone ZONE           IANA timezone for timed events (default: "Asia/Kolkata")
    --query QUERY             Gmail search query (default: "newer_than:2d")
    --max-results N           Maximum messages to fetch per run (default: 25)
    --conflict-policy POLICY  keep-old, keep-new, keep-both or ask (default: "ask")
    --default-duration        Give lone morning start times a 1-hour duration
    --seen-path PATH          Processed-message bookkeeping file (default: "seen.json")
    --gemini-api-key KEY      Enables LLM polish of event titles and venues
    --gemini-model MODEL      Gemini model name (default: "gemini-2.0-flash")

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (CLEO_* versions of the settings above)
    3. Config file (--config)
    4. Defaults

DESCRIPTION:
    Each message is processed independently. Messages with no recognizable
    date or time are skipped. A message naming several dates ("8th & 9th
    january") produces one event per date; a date range ("14th to 16th
    august") produces a single daily-recurring event.

    Before inserting, CLEO lists existing events in the same time window.
    With --conflict-policy=ask you are prompted per conflict; the other
    policies resolve automatically.

    On first run, you will be prompted to authorize Gmail and Calendar
    access via OAuth 2.0. Subsequent runs use the stored refresh token.

EXAMPLES:
    # Run against your Google Calendar with a config file
    %s --config config.json

    # Dry-run style: write events to a local file instead
    %s --credentials credentials.json --calendar-type ics --ics-path events.ics

    # Look further back and resolve conflicts automatically
    %s --credentials credentials.json --query "newer_than:7d" --conflict-policy keep-both

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file (optional)")

	var flagCfg config.Config
	flag.StringVar(&flagCfg.CredentialsPath, "credentials", "", "Path to Google OAuth credentials JSON file")
	flag.StringVar(&flagCfg.TokenPath, "token", "", "Path to store the OAuth token")
	flag.StringVar(&flagCfg.CalendarName, "calendar-name", "", "Name of the calendar to create/use")
	flag.StringVar(&flagCfg.CalendarColorID, "calendar-color-id", "", "Color ID for the calendar")
	flag.StringVar(&flagCfg.CalendarType, "calendar-type", "", "Calendar destination type: google or ics")
	flag.StringVar(&flagCfg.ICSPath, "ics-path", "", "Destination .ics file for the ics calendar type")
	flag.StringVar(&flagCfg.Timezone, "timezone", "", "IANA timezone for timed events")
	flag.StringVar(&flagCfg.GmailQuery, "query", "", "Gmail search query")
	flag.Int64Var(&flagCfg.MaxResults, "max-results", 0, "Maximum messages to fetch per run")
	flag.StringVar(&flagCfg.ConflictPolicy, "conflict-policy", "", "keep-old, keep-new, keep-both or ask")
	flag.BoolVar(&flagCfg.DefaultDuration, "default-duration", false, "Give lone morning start times a 1-hour duration")
	flag.StringVar(&flagCfg.SeenPath, "seen-path", "", "Processed-message bookkeeping file")
	flag.StringVar(&flagCfg.GeminiAPIKey, "gemini-api-key", "", "Gemini API key")
	flag.StringVar(&flagCfg.GeminiModel, "gemini-model", "", "Gemini model name")
	flag.Parse()

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	fmt.Print(banner)

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configFile, flagCfg)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	policy, err := calclient.ParsePolicy(cfg.ConflictPolicy)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tz, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	scopes := []string{gmail.GmailReadonlyScope}
	if cfg.CalendarType == "google" {
		scopes = append(scopes, calendar.CalendarScope, calendar.CalendarEventsScope)
	}
	oauthConfig, err := auth.LoadOAuthConfig(cfg.CredentialsPath, scopes...)
	if err != nil {
		log.Fatalf("Failed to load Google credentials: %v", err)
	}

	tokenStore := auth.NewFileTokenStore(cfg.TokenPath)
	httpClient, err := auth.GetAuthenticatedClient(ctx, oauthConfig, tokenStore)
	if err != nil {
		log.Fatalf("Failed to authenticate: %v", err)
	}

	source, err := mail.NewGmailSource(ctx, httpClient, cfg.GmailQuery, cfg.MaxResults)
	if err != nil {
		log.Fatalf("Failed to create mail source: %v", err)
	}

	var client calclient.Client
	switch cfg.CalendarType {
	case "google":
		client, err = calclient.NewGoogleClient(ctx, httpClient)
		if err != nil {
			log.Fatalf("Failed to create calendar client: %v", err)
		}
	case "ics":
		client = calclient.NewICSClient(cfg.ICSPath, tz)
	}

	calendarID, err := client.FindOrCreateCalendarByName(cfg.CalendarName, cfg.CalendarColorID)
	if err != nil {
		log.Fatalf("Failed to find or create calendar: %v", err)
	}

	var enricher llm.Enricher
	if cfg.GeminiAPIKey != "" {
		enricher = llm.NewGeminiEnricher(cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	seen := pipeline.NewSeenStore(cfg.SeenPath)
	if err := seen.Load(); err != nil {
		log.Fatalf("Failed to load seen file: %v", err)
	}

	p := pipeline.New(pipeline.Options{
		Source:          source,
		Resolver:        calclient.NewResolver(client, calendarID, tz),
		Enricher:        enricher,
		Seen:            seen,
		Location:        tz,
		Policy:          policy,
		DefaultDuration: cfg.DefaultDuration,
		Decide:          promptDecision,
	})

	outcomes, err := p.Run(ctx)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	var inserted, skipped, failed int
	for _, out := range outcomes {
		switch out.Status {
		case pipeline.StatusInserted:
			inserted += out.Inserted
		case pipeline.StatusPartial:
			inserted += out.Inserted
			failed += out.Failed
		case pipeline.StatusFailed:
			failed++
		case pipeline.StatusSkipped, pipeline.StatusNoSignal:
			skipped++
		}
		for _, line := range outcomeLines(out) {
			log.Printf("%s", line)
		}
	}
	log.Printf("Done: %d message(s) checked, %d event(s) inserted, %d skipped, %d failed",
		len(outcomes), inserted, skipped, failed)
}

// outcomeLines renders the per-message summary, one distinct first line
// per outcome status.
func outcomeLines(out pipeline.Outcome) []string {
	switch out.Status {
	case pipeline.StatusInserted:
		lines := []string{fmt.Sprintf("Inserted %d event(s) for %q", out.Inserted, out.Subject)}
		for _, link := range out.Links {
			lines = append(lines, "  "+link)
		}
		return lines
	case pipeline.StatusPartial:
		lines := []string{fmt.Sprintf("Warning: only %d of %d event(s) inserted for %q", out.Inserted, out.Inserted+out.Failed, out.Subject)}
		for _, err := range out.Errors {
			lines = append(lines, fmt.Sprintf("  %v", err))
		}
		return lines
	case pipeline.StatusFailed:
		lines := []string{fmt.Sprintf("Warning: failed to process message %s:", out.MessageID)}
		for _, err := range out.Errors {
			lines = append(lines, fmt.Sprintf("  %v", err))
		}
		return lines
	case pipeline.StatusSkipped:
		return []string{fmt.Sprintf("Skipped %q, existing events kept", out.Subject)}
	case pipeline.StatusNoSignal:
		return []string{fmt.Sprintf("Skipped %q, no event details found", out.Subject)}
	case pipeline.StatusSeen:
		return []string{fmt.Sprintf("Skipped message %s, already processed", out.MessageID)}
	}
	return nil
}

// promptDecision asks the user what to do about a conflicting insertion.
func promptDecision(msg *mail.Message, p event.Proposed, conflicts []*calendar.Event) calclient.Policy {
	fmt.Printf("\nConflict for %q (%s):\n", p.Event.Summary, describeWhen(p.Event))
	for _, c := range conflicts {
		fmt.Printf("  existing: %q (%s)\n", c.Summary, describeWhen(c))
	}
	for {
		fmt.Print("Keep [o]ld, keep [n]ew, or keep [b]oth? ")
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil {
			fmt.Println("\nNo answer, keeping the existing event.")
			return calclient.PolicyKeepOld
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "o", "old":
			return calclient.PolicyKeepOld
		case "n", "new":
			return calclient.PolicyKeepNew
		case "b", "both":
			return calclient.PolicyKeepBoth
		}
		fmt.Println("Please answer o, n or b.")
	}
}

func describeWhen(ev *calendar.Event) string {
	if ev.Start == nil {
		return "unknown time"
	}
	if ev.Start.Date != "" {
		return ev.Start.Date
	}
	return ev.Start.DateTime
}
