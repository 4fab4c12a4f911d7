package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"permitwise/internal/app"
	"permitwise/internal/config"
	"permitwise/internal/db"
	"permitwise/internal/domain"
	"permitwise/internal/engine"
	"permitwise/internal/flow"
	"permitwise/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pw",
	Short: "Permitwise CLI",
	Long: `Permitwise answers one question: what will it take to get this home
renovation permitted? It walks a short questionnaire for the project, then
reports the permit tier, whether an engineer has to be involved, and rough
cost and timeline numbers for the jurisdiction.
- Workspace: a .permitwise directory holding the sqlite database; rule data
  comes from permitwise.yml or the built-in dataset.
- Sessions: in-flight questionnaires, held in memory with a TTL; completed
  assessments are persisted and survive expiry.
- Checklist: after the assessment, a guided conversation collects the
  documentation the permit package needs.
- Event log: an append-only record of session activity, view with 'pw log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PERMITWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(assessmentCmd())
	rootCmd.AddCommand(checklistCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func askCmd() *cobra.Command {
	var projectType, state, stateShort, county, city string
	var cityLimits bool
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Run an interactive permit assessment",
		Long: `Walks the questionnaire for a project type on the terminal. Type 'back'
to rewind the previous answer, 'review' to see everything answered so far.
Multi-select answers are comma separated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectType == "" {
				return fmt.Errorf("--project-type required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				j := domain.JurisdictionContext{
					State:            state,
					StateShort:       stateShort,
					County:           county,
					City:             city,
					LikelyCityLimits: cityLimits,
				}
				return runAsk(ctx, a, projectType, j)
			})
		},
	}
	cmd.Flags().StringVar(&projectType, "project-type", "", "project type (deck, fence, bathroom-remodel, kitchen-remodel, hvac-replacement, water-heater)")
	cmd.Flags().StringVar(&state, "state", "", "state name")
	cmd.Flags().StringVar(&stateShort, "state-short", "", "state abbreviation")
	cmd.Flags().StringVar(&county, "county", "", "county name")
	cmd.Flags().StringVar(&city, "city", "", "city name")
	cmd.Flags().BoolVar(&cityLimits, "city-limits", false, "property is likely inside city limits")
	_ = cmd.MarkFlagRequired("project-type")
	return cmd
}

func runAsk(ctx context.Context, a *app.Context, projectType string, j domain.JurisdictionContext) error {
	e := a.Engine
	res, err := e.Start(ctx, projectType, j)
	if err != nil {
		return err
	}
	heading := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	warn := color.New(color.FgYellow)
	heading.Printf("Permit assessment: %s", projectType)
	if j.State != "" {
		fmt.Printf(" (%s", j.State)
		if j.County != "" {
			fmt.Printf(", %s", j.County)
		}
		fmt.Print(")")
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for !res.Completed {
		q := res.Question
		if q == nil {
			break
		}
		fmt.Println()
		fmt.Printf("[%d/%d] %s\n", res.Answered+1, res.Total, q.Text)
		printQuestionHint(dim, q)
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "back":
			prev := lastAnsweredID(ctx, e, res.SessionID)
			if prev == "" {
				warn.Println("Nothing to go back to.")
				continue
			}
			back, prevAnswer, err := e.Back(ctx, res.SessionID, prev)
			if err != nil {
				warn.Println(err.Error())
				continue
			}
			dim.Printf("Rewound %s (was: %s)\n", prev, prevAnswer)
			res = back
			continue
		case "review":
			r, err := e.Review(ctx, res.SessionID)
			if err != nil {
				return err
			}
			for _, entry := range r.Summary {
				fmt.Printf("  %s: %s\n", entry.Question, entry.Answer)
			}
			continue
		}
		value, err := parseAnswer(q, line)
		if err != nil {
			warn.Println(err.Error())
			continue
		}
		next, err := e.Answer(ctx, res.SessionID, q.ID, value)
		if err != nil {
			var verr domain.ValidationError
			if errors.As(err, &verr) {
				warn.Println(verr.Message)
				continue
			}
			return err
		}
		res = next
	}

	if res.Assessment == nil {
		return fmt.Errorf("questionnaire ended without a result")
	}
	fmt.Println()
	renderAssessment(*res.Assessment)

	items, err := e.Checklist(ctx, res.SessionID)
	if err != nil || len(items) == 0 {
		return nil
	}
	fmt.Println()
	fmt.Printf("Your permit package has %d checklist items. Walk through them now? [y/N] ", len(items))
	if !scanner.Scan() || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(scanner.Text())), "y") {
		return nil
	}
	return runChecklistWalk(ctx, a, res.SessionID, scanner)
}

func printQuestionHint(dim *color.Color, q *domain.Question) {
	switch q.Type {
	case domain.QuestionYesNo:
		dim.Println("  (yes/no)")
	case domain.QuestionSelect, domain.QuestionMultiSelect:
		opts := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, o.Value)
		}
		dim.Printf("  (%s)\n", strings.Join(opts, ", "))
	case domain.QuestionNumber:
		if q.Validation != nil {
			switch {
			case q.Validation.Min != nil && q.Validation.Max != nil:
				dim.Printf("  (number, %v-%v)\n", *q.Validation.Min, *q.Validation.Max)
			case q.Validation.Min != nil:
				dim.Printf("  (number, at least %v)\n", *q.Validation.Min)
			case q.Validation.Max != nil:
				dim.Printf("  (number, at most %v)\n", *q.Validation.Max)
			}
		} else {
			dim.Println("  (number)")
		}
	}
}

// parseAnswer converts a raw terminal line into the value shape the
// question expects. Validation proper happens in the questions engine.
func parseAnswer(q *domain.Question, line string) (any, error) {
	if line == "" {
		return "", nil
	}
	switch q.Type {
	case domain.QuestionNumber:
		n, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("answer must be a number")
		}
		return n, nil
	case domain.QuestionMultiSelect:
		parts := strings.Split(line, ",")
		vals := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				vals = append(vals, s)
			}
		}
		return vals, nil
	default:
		return line, nil
	}
}

func lastAnsweredID(ctx context.Context, e engine.Engine, sessionID string) string {
	r, err := e.Review(ctx, sessionID)
	if err != nil || len(r.Summary) == 0 {
		return ""
	}
	return r.Summary[len(r.Summary)-1].QuestionID
}

func renderAssessment(a domain.Assessment) {
	heading := color.New(color.FgCyan, color.Bold)
	heading.Println("Result")
	if viper.GetBool("json") {
		printJSON(a)
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendRow(table.Row{"Permit level", a.PermitLabel})
	tw.AppendRow(table.Row{"Why", a.PermitReason})
	eng := "no"
	if a.Engineering.Required {
		eng = fmt.Sprintf("yes (%s)", a.Engineering.Reason)
	}
	tw.AppendRow(table.Row{"Engineering", eng})
	if a.EngineeringCost != nil {
		tw.AppendRow(table.Row{"Engineering cost", a.EngineeringCost.Formatted})
	}
	tw.AppendRow(table.Row{"Permit fee", a.PermitFee.Formatted})
	tw.AppendRow(table.Row{"Total cost", a.TotalCost.Formatted})
	tw.AppendRow(table.Row{"Review timeline", a.ReviewTimeline.Formatted})
	tw.AppendRow(table.Row{"Total timeline", a.TotalTimeline.Formatted})
	tw.Render()
	for _, note := range a.Engineering.Notes {
		fmt.Println("note:", note)
	}
	if len(a.Engineering.Requirements) > 0 {
		fmt.Println("Engineering deliverables:")
		for _, req := range a.Engineering.Requirements {
			fmt.Println("  -", req)
		}
	}
}

func runChecklistWalk(ctx context.Context, a *app.Context, sessionID string, scanner *bufio.Scanner) error {
	e := a.Engine
	green := color.New(color.FgGreen)
	res, err := e.ChecklistMessage(ctx, sessionID, "start")
	if err != nil {
		return err
	}
	for {
		fmt.Println()
		fmt.Println(res.Reply.Message)
		if res.Reply.CompletedItem != nil {
			green.Printf("✓ %s\n", res.Reply.CompletedItem.Title)
		}
		if res.Reply.Done || res.Phase == flow.PhaseFinished {
			return nil
		}
		if len(res.Reply.QuickReplies) > 0 {
			opts := make([]string, 0, len(res.Reply.QuickReplies))
			for _, qr := range res.Reply.QuickReplies {
				opts = append(opts, qr.Value)
			}
			fmt.Printf("  (%s)\n", strings.Join(opts, ", "))
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		res, err = e.ChecklistMessage(ctx, sessionID, line)
		if err != nil {
			return err
		}
	}
}

func assessmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessment",
		Short: "Stored assessment results",
	}
	cmd.AddCommand(assessmentListCmd())
	cmd.AddCommand(assessmentShowCmd())
	return cmd
}

func assessmentListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListAssessments(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Session", "Project", "State", "Level", "Engineering", "Created"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.SessionID, it.ProjectType, it.State, domain.PermitLevel(it.PermitLevel).String(), it.EngineeringRequired, it.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "n", 20, "number of assessments")
	return cmd
}

func assessmentShowCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				stored, err := a.Engine.Repo.GetAssessment(ctx, sessionID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stored.Result)
				}
				renderAssessment(stored.Result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func checklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Permit package checklist",
	}
	cmd.AddCommand(checklistListCmd())
	cmd.AddCommand(checklistTemplatesCmd())
	return cmd
}

func checklistListCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted checklist items for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListChecklistItems(ctx, sessionID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Item", "Title", "Status", "Updated"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ItemID, it.Title, it.Status, it.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func checklistTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Show the configured checklist items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if viper.GetBool("json") {
					return printJSON(a.Config.Checklist)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Questions", "Photo only"})
				for _, t := range a.Config.Checklist {
					tw.AppendRow(table.Row{t.ID, t.Title, len(t.Questions), t.PhotoOnly})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Engineering rule dataset",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesShowCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured state and project rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if viper.GetBool("json") {
					return printJSON(a.Config.Rules)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"State", "Project", "Always required", "Predicates", "Triggers"})
				states := make([]string, 0, len(a.Config.Rules.States))
				for s := range a.Config.Rules.States {
					states = append(states, s)
				}
				sort.Strings(states)
				for _, s := range states {
					sr := a.Config.Rules.States[s]
					projects := make([]string, 0, len(sr.Projects))
					for p := range sr.Projects {
						projects = append(projects, p)
					}
					sort.Strings(projects)
					for _, p := range projects {
						pr := sr.Projects[p]
						tw.AppendRow(table.Row{s, p, pr.AlwaysRequired, len(pr.Predicates), len(pr.Triggers)})
					}
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func rulesShowCmd() *cobra.Command {
	var state, project string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the rules for one state and project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if state == "" || project == "" {
				return fmt.Errorf("--state and --project required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				sr, ok := a.Config.Rules.States[state]
				if !ok {
					return fmt.Errorf("no rules for state %q", state)
				}
				pr, ok := sr.Projects[project]
				if !ok {
					return fmt.Errorf("no %s rules for state %q", project, state)
				}
				return printJSON(pr)
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "state abbreviation (e.g. CA)")
	cmd.Flags().StringVar(&project, "project", "", "project type")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Dataset configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = config.Path(viper.GetString("workspace"))
			}
			cfg, err := config.FromFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Printf("%s not found; the built-in dataset applies\n", path)
					return nil
				}
				return err
			}
			fmt.Printf("%s OK: %d project types, %d states, %d checklist items\n",
				path, len(cfg.Questions), len(cfg.Rules.States), len(cfg.Checklist))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file path (defaults to the workspace permitwise.yml)")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var sessionID, evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				events, err := a.Engine.Repo.LatestEvents(ctx, n, sessionID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id filter")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer a.Close()
			handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath})
			if err != nil {
				return err
			}
			a.Engine.Sessions.StartSweeper(cmd.Context(), a.Engine.SweepInterval())
			server.StartWebhookDispatcher(a.Engine)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Permitwise API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	a, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
