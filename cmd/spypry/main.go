package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spypry/spypry/internal/api"
	"github.com/spypry/spypry/internal/browser"
	"github.com/spypry/spypry/internal/config"
	"github.com/spypry/spypry/internal/email"
	"github.com/spypry/spypry/internal/history"
	"github.com/spypry/spypry/internal/ignore"
	"github.com/spypry/spypry/internal/linkcheck"
	"github.com/spypry/spypry/internal/template"
	"github.com/spypry/spypry/internal/web"
	"github.com/spypry/spypry/internal/workflow"
)

var (
	cfgFile     string
	backendURL  string
	sessionFile string
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if sessionFile != "" {
		cfg.Backend.SessionFile = sessionFile
	}
	if cfg.Backend.SessionFile == "" {
		cfg.Backend.SessionFile = api.DefaultSessionPath()
	}
	return cfg, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "spypry",
		Short: "SpyPry - Find who has your data and get it deleted",
		Long: `SpyPry scans your inbox for companies that hold your personal data,
finds their official account-deletion pages, and writes opt-out letters
you can send.

Scanning and discovery run on the SpyPry backend; this tool drives the
workflow and keeps a local activity log.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.spypry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "session file (default is $HOME/.spypry/session.json)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(disconnectCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(findLinkCmd())
	rootCmd.AddCommand(letterCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(ignoreCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(logoutCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newController builds and starts a workflow controller from the saved
// session. The caller owns Close.
func newController(ctx context.Context, cfg *config.Config) (*workflow.Controller, error) {
	client, err := api.New(cfg.Backend.URL)
	if err != nil {
		return nil, err
	}
	if err := client.LoadSession(cfg.Backend.SessionFile); err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	ctrl := workflow.New(client,
		workflow.WithProfile(workflow.Profile{
			FullName: cfg.Profile.FullName,
			Email:    cfg.Profile.Email,
			Product:  cfg.Profile.Product,
		}),
		workflow.WithProgressInterval(time.Duration(cfg.Scan.ProgressIntervalMs)*time.Millisecond),
		workflow.WithScanTimeout(time.Duration(cfg.Scan.TimeoutSec)*time.Second),
	)

	if err := ctrl.Start(ctx); err != nil {
		ctrl.Close()
		if errors.Is(err, workflow.ErrNotAuthenticated) {
			return nil, fmt.Errorf("not logged in: open %s in your browser, sign in, then run 'spypry serve' once to capture the session", cfg.Backend.URL)
		}
		return nil, err
	}

	// Keep whatever cookies the backend refreshed.
	if err := client.SaveSession(cfg.Backend.SessionFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save session: %v\n", err)
	}
	return ctrl, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with the backend address, your letter identity and optional SMTP settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("SpyPry Configuration Setup")
	fmt.Println("==========================")
	fmt.Println()

	cfg := &config.Config{}

	backend := prompt(reader, "Backend URL [http://localhost:8000]: ")
	if backend == "" {
		backend = "http://localhost:8000"
	}
	cfg.Backend.URL = backend

	fmt.Println()
	fmt.Println("Letter identity (used in generated opt-out letters; leave blank to use your account)")
	fmt.Println()
	cfg.Profile.FullName = prompt(reader, "Full name: ")
	cfg.Profile.Email = prompt(reader, "Email address: ")
	cfg.Profile.Product = prompt(reader, "Product or service you typically used (optional): ")

	fmt.Println()
	if strings.EqualFold(prompt(reader, "Configure SMTP so spypry can send letters for you? (y/N): "), "y") {
		cfg.Email.SMTP.Host = prompt(reader, "  SMTP host [smtp.gmail.com]: ")
		if cfg.Email.SMTP.Host == "" {
			cfg.Email.SMTP.Host = "smtp.gmail.com"
		}
		portStr := prompt(reader, "  SMTP port [465]: ")
		if portStr == "" {
			portStr = "465"
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port: %q", portStr)
		}
		cfg.Email.SMTP.Port = port
		cfg.Email.SMTP.Username = prompt(reader, "  Username: ")
		cfg.Email.SMTP.Password = prompt(reader, "  App password: ")
		cfg.Email.SMTP.UseTLS = true
		cfg.Email.From = cfg.Email.SMTP.Username
	}

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'spypry serve' and sign in on the backend")
	fmt.Println("  2. Run 'spypry connect' to link your Gmail account")
	fmt.Println("  3. Run 'spypry scan' to find companies holding your data")
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in and whether a mailbox is linked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctrl, err := newController(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			st := ctrl.Snapshot()
			fmt.Printf("Backend:   %s\n", cfg.Backend.URL)
			fmt.Printf("Logged in: %s", st.User.Email)
			if st.User.Name != "" {
				fmt.Printf(" (%s)", st.User.Name)
			}
			fmt.Println()
			if st.Connected {
				fmt.Printf("Mailbox:   connected (%s)\n", st.ConnectedEmail)
			} else {
				fmt.Println("Mailbox:   not connected - run 'spypry connect'")
			}
			return nil
		},
	}
}

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Link your Gmail account to the backend",
		Long:  "Print the OAuth URL that links your Gmail account. Finish the flow in the browser, then re-run 'spypry status'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctrl, err := newController(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if ctrl.Connected() {
				fmt.Println("A mailbox is already connected.")
				return nil
			}

			connectURL := ctrl.ConnectURL()
			if err := browser.Open(connectURL); err != nil {
				fmt.Println("Open this URL in your browser to link your Gmail account:")
			} else {
				fmt.Println("Opening your browser to link your Gmail account:")
			}
			fmt.Println()
			fmt.Printf("  %s\n", connectURL)
			fmt.Println()
			fmt.Println("When the flow finishes, run 'spypry status' to confirm.")
			return nil
		},
	}
}

func disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Unlink the connected mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctrl, err := newController(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			ctrl.Disconnect(cmd.Context())
			fmt.Println("Mailbox disconnected.")
			return nil
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan your inbox for companies that hold your data",
		Long:  "Run a mailbox scan on the backend and list the detected companies in the backend's ranking order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.NewStore(history.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			ctrl, err := newController(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.StartScan(); err != nil {
				return err
			}

			// Mirror the progress labels on the terminal while waiting.
			done := make(chan struct{})
			go func() {
				defer close(done)
				last := -1
				for {
					st := ctrl.Snapshot()
					if st.Scan.Phase != workflow.PhaseScanning {
						return
					}
					if st.Scan.Step != last {
						last = st.Scan.Step
						fmt.Printf("  %s...\n", st.Scan.StepLabel)
					}
					time.Sleep(100 * time.Millisecond)
				}
			}()

			phase, err := ctrl.WaitForScan(cmd.Context())
			<-done
			if err != nil {
				return err
			}

			st := ctrl.Snapshot()
			rec := &history.ScanRecord{
				SessionID:      st.SessionID,
				CompaniesFound: len(st.Scan.Companies),
				Error:          st.Scan.Err,
			}
			if err := store.AddScan(rec); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record scan: %v\n", err)
			}

			if phase == workflow.PhaseError {
				return fmt.Errorf("scan failed: %s", st.Scan.Err)
			}

			companies := st.Scan.Companies
			hidden := 0
			if ignored, err := ignore.Load(ignore.DefaultPath()); err == nil {
				filtered := ignored.Filter(companies)
				hidden = len(companies) - len(filtered)
				companies = filtered
			}

			fmt.Println()
			fmt.Printf("Found %d companies:\n\n", len(companies))
			printCompanies(companies)
			if hidden > 0 {
				fmt.Printf("\n  (%d already handled, hidden - see 'spypry ignore --list')\n", hidden)
			}
			fmt.Println()
			fmt.Println("Run 'spypry find-link <domain>' or 'spypry letter <domain>' to act on a result.")
			return nil
		},
	}
}

func printCompanies(companies []api.Company) {
	fmt.Printf("  %-28s %-10s %-12s %s\n", "COMPANY", "CONFIDENCE", "LAST SEEN", "EVIDENCE")
	for _, c := range companies {
		evidence := make([]string, len(c.Evidence))
		for i, e := range c.Evidence {
			evidence[i] = string(e)
		}
		name := workflow.CompanyDisplayName(c)
		fmt.Printf("  %-28s %-10s %-12s %s\n",
			fmt.Sprintf("%s (%s)", name, c.Domain), c.Confidence, c.LastSeen, strings.Join(evidence, ", "))
	}
}

func findLinkCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "find-link <domain>",
		Short: "Find the official account-deletion link for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.NewStore(history.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			ctrl, err := newController(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			fmt.Printf("Searching for an official deletion link for %s...\n\n", domain)
			result, err := ctrl.LookupDeleteLink(cmd.Context(), domain)
			if err != nil {
				return err
			}

			rec := &history.LookupRecord{
				Domain:     result.Domain,
				Purpose:    string(result.Purpose),
				Confidence: result.Confidence,
			}
			if result.BestURL != nil {
				rec.BestURL = *result.BestURL
			}
			if err := store.AddLookup(rec); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record lookup: %v\n", err)
			}

			printLinkResult(result)

			if check && result.BestURL != nil {
				fmt.Println()
				fmt.Println("Verifying the page...")
				verdict, err := linkcheck.NewChecker().Check(cmd.Context(), *result.BestURL)
				if err != nil {
					return fmt.Errorf("verification failed: %w", err)
				}
				if verdict.Title != "" {
					fmt.Printf("  Title: %s\n", verdict.Title)
				}
				fmt.Printf("  Verdict: %s\n", verdict.Assessment)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Fetch the discovered page and verify it covers account deletion")

	return cmd
}

func printLinkResult(result api.DeleteLinkResult) {
	if result.BestURL != nil {
		fmt.Printf("Best link: %s\n", *result.BestURL)
	} else {
		fmt.Println("Best link: none found")
	}
	fmt.Printf("Purpose:   %s\n", result.Purpose)
	fmt.Printf("Confidence: %.0f%%\n", result.Confidence*100)
	if len(result.Steps) > 0 {
		fmt.Println("Steps:")
		for i, step := range result.Steps {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
	}
	if result.Notes != "" {
		fmt.Printf("Notes: %s\n", result.Notes)
	}
}

func letterCmd() *cobra.Command {
	var companyName string
	var send bool
	var fallback string

	cmd := &cobra.Command{
		Use:   "letter <domain>",
		Short: "Generate an opt-out letter for a company",
		Long: `Ask the backend to write a formal opt-out letter for a company. When the
backend cannot find the company's privacy policy or a privacy contact, the
missing pieces are reported instead.

With --send the letter is mailed immediately through your configured SMTP
account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if send {
				if err := cfg.ValidateEmail(); err != nil {
					return fmt.Errorf("cannot send: %w (run 'spypry init' to configure SMTP)", err)
				}
			}

			store, err := history.NewStore(history.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			ctrl, err := newController(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			name := companyName
			if name == "" {
				name = workflow.CompanyDisplayName(api.Company{Domain: domain})
			}

			fmt.Printf("Generating opt-out letter for %s...\n\n", name)
			outcome, err := ctrl.GenerateLetter(cmd.Context(), domain, name)
			if err != nil {
				return err
			}

			if outcome.Missing != nil {
				fmt.Println("Not enough public information to write this letter:")
				if outcome.Missing.PrivacyPolicyURL {
					fmt.Println("  - no privacy policy found")
				}
				if outcome.Missing.PrivacyContactEmail {
					fmt.Println("  - no privacy contact email found")
				}
				if fallback == "" {
					fmt.Println()
					fmt.Println("Pass --fallback gdpr|ccpa|generic to render a generic letter locally.")
					return nil
				}
				return renderFallbackLetter(cfg, store, fallback, domain, name)
			}

			letter := outcome.Letter
			fmt.Printf("To:      %s\n", letter.EmailAddress)
			fmt.Printf("Subject: %s\n", letter.Subject)
			fmt.Println()
			fmt.Println(letter.Body)

			rec := &history.LetterRecord{
				Domain:       domain,
				CompanyName:  letter.CompanyName,
				EmailAddress: letter.EmailAddress,
				Subject:      letter.Subject,
				Status:       history.LetterGenerated,
			}
			if err := store.AddLetter(rec); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record letter: %v\n", err)
			}

			if !send {
				return nil
			}

			fmt.Println()
			fmt.Printf("Sending to %s...\n", letter.EmailAddress)

			sender, err := email.NewSender(cfg.Email)
			if err != nil {
				return err
			}
			result := sender.Send(cmd.Context(), email.Message{
				To:      letter.EmailAddress,
				From:    cfg.Email.From,
				Subject: letter.Subject,
				Body:    letter.Body,
			})
			if err := store.MarkLetterSent(rec.ID, result.Error); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record send: %v\n", err)
			}
			if !result.Success {
				return fmt.Errorf("send failed: %v", result.Error)
			}
			fmt.Println("Sent.")
			return nil
		},
	}

	cmd.Flags().StringVar(&companyName, "company", "", "Company display name (default derived from the domain)")
	cmd.Flags().BoolVar(&send, "send", false, "Send the letter via your configured SMTP account")
	cmd.Flags().StringVar(&fallback, "fallback", "", "Render a generic letter locally (gdpr, ccpa, generic) when the backend cannot")

	return cmd
}

// renderFallbackLetter produces a generic letter from the local templates.
// There is no recipient address in this path, so the letter is printed for
// the user to deliver themselves.
func renderFallbackLetter(cfg *config.Config, store *history.Store, templateName, domain, companyName string) error {
	engine, err := template.NewEngine()
	if err != nil {
		return err
	}

	website := ""
	if domain != "" {
		website = "https://" + domain
	}
	letter, err := engine.Render(templateName, cfg.Profile, companyName, website)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Subject: %s\n", letter.Subject)
	fmt.Println()
	fmt.Println(letter.Body)
	fmt.Println("No recipient address is known; paste this into the company's contact form.")

	rec := &history.LetterRecord{
		Domain:      domain,
		CompanyName: companyName,
		Subject:     letter.Subject,
		Status:      history.LetterGenerated,
	}
	if err := store.AddLetter(rec); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record letter: %v\n", err)
	}
	return nil
}

func ignoreCmd() *cobra.Command {
	var reason string
	var remove bool
	var list bool

	cmd := &cobra.Command{
		Use:   "ignore [domain]",
		Short: "Mark a company as handled so scans stop showing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ignored, err := ignore.Load(ignore.DefaultPath())
			if err != nil {
				return err
			}

			if list {
				if len(ignored.Entries) == 0 {
					fmt.Println("No ignored companies.")
					return nil
				}
				for _, e := range ignored.Entries {
					line := fmt.Sprintf("  %-28s %s", e.Domain, e.AddedAt.Format("Jan 2, 2006"))
					if e.Reason != "" {
						line += "  " + e.Reason
					}
					fmt.Println(line)
				}
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("expected a domain argument")
			}
			domain := args[0]

			if remove {
				if ignored.Remove(domain) == nil {
					return fmt.Errorf("%s is not on the ignore list", domain)
				}
				if err := ignored.Save(ignore.DefaultPath()); err != nil {
					return err
				}
				fmt.Printf("%s will show up in scans again.\n", domain)
				return nil
			}

			if err := ignored.Add(domain, reason); err != nil {
				return err
			}
			if err := ignored.Save(ignore.DefaultPath()); err != nil {
				return err
			}
			fmt.Printf("%s marked as handled; scans will hide it.\n", domain)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why this company is handled, e.g. \"account deleted\"")
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the domain from the ignore list")
	cmd.Flags().BoolVar(&list, "list", false, "List ignored companies")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent activity and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore(history.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			scans, lookups, lettersSent, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Totals: %d scans, %d lookups, %d letters sent\n\n", scans, lookups, lettersSent)

			recent, err := store.RecentLetters(limit)
			if err != nil {
				return err
			}
			if len(recent) > 0 {
				fmt.Println("Recent letters:")
				for _, l := range recent {
					line := fmt.Sprintf("  %-24s %-10s %s", l.CompanyName, l.Status, l.CreatedAt.Format("Jan 2, 2006"))
					if l.Error != "" {
						line += "  (" + l.Error + ")"
					}
					fmt.Println(line)
				}
				fmt.Println()
			}

			recentLookups, err := store.RecentLookups(limit)
			if err != nil {
				return err
			}
			if len(recentLookups) > 0 {
				fmt.Println("Recent lookups:")
				for _, l := range recentLookups {
					url := l.BestURL
					if url == "" {
						url = "(no link found)"
					}
					fmt.Printf("  %-24s %-16s %s\n", l.Domain, l.Purpose, url)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent records to show")

	return cmd
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local dashboard",
		Long: `Start a local web server with the SpyPry dashboard.

The dashboard walks through the whole flow: connect your Gmail account,
scan your inbox, inspect each company's deletion link and generate opt-out
letters. The server binds to localhost; nothing is exposed to the network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Web.ListenAddr = listen
			}

			client, err := api.New(cfg.Backend.URL)
			if err != nil {
				return err
			}
			if err := client.LoadSession(cfg.Backend.SessionFile); err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}

			store, err := history.NewStore(history.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			ctrl := workflow.New(client,
				workflow.WithProfile(workflow.Profile{
					FullName: cfg.Profile.FullName,
					Email:    cfg.Profile.Email,
					Product:  cfg.Profile.Product,
				}),
				workflow.WithProgressInterval(time.Duration(cfg.Scan.ProgressIntervalMs)*time.Millisecond),
				workflow.WithScanTimeout(time.Duration(cfg.Scan.TimeoutSec)*time.Second),
				workflow.WithScanHook(func(companies []api.Company, scanErr error) {
					rec := &history.ScanRecord{CompaniesFound: len(companies)}
					if scanErr != nil {
						rec.Error = scanErr.Error()
					}
					if err := store.AddScan(rec); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to record scan: %v\n", err)
					}
				}),
			)
			defer ctrl.Close()

			srv, err := web.NewServer(cfg.Web.ListenAddr, cfg, ctrl, store)
			if err != nil {
				return err
			}
			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default 127.0.0.1:8787)")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the backend session and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := api.New(cfg.Backend.URL)
			if err != nil {
				return err
			}
			if err := client.LoadSession(cfg.Backend.SessionFile); err == nil {
				// Best-effort: the local session file is removed either way.
				_ = client.Logout(cmd.Context())
			}

			if err := api.ClearSession(cfg.Backend.SessionFile); err != nil {
				return fmt.Errorf("failed to remove session file: %w", err)
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
