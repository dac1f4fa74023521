package main

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/adaptutor/adaptutor/internal/catalog"
	"github.com/adaptutor/adaptutor/internal/engine"
	"github.com/adaptutor/adaptutor/internal/handler"
	appI18n "github.com/adaptutor/adaptutor/internal/i18n"
	"github.com/adaptutor/adaptutor/internal/llm"
	"github.com/adaptutor/adaptutor/internal/model"
	"github.com/adaptutor/adaptutor/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adaptutor",
		Short: "Adaptive tutoring engine with per-student progress tracking",
	}

	serve := serveCmd()
	root.AddCommand(serve, sessionCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `adaptutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func commonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "adaptutor.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP tutoring server",
		RunE:  runServe,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringSliceP("bank", "b", nil, "Extra question bank JSON files (repeatable)")
	f.StringP("lang", "l", "en", "Feedback language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Bool("llm-grader", false, "Grade responses with the LLM instead of the length heuristic")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("admin-password", "", "Initial admin password (or set TUTOR_ADMIN_PASSWORD)")
	return cmd
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run an interactive tutoring session in the terminal",
		RunE:  runSession,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.StringP("student", "s", "", "Student name (profile is created on first use)")
	f.StringSliceP("topics", "t", []string{"mathematics", "science"}, "Preferred topics for a new profile")
	f.StringP("difficulty", "d", "medium", "Preferred difficulty for a new profile (easy, medium, hard)")
	f.String("style", "reading", "Learning style for a new profile (visual, auditory, kinesthetic, reading)")
	f.StringP("mode", "m", "collaborative", "Coordination mode (hierarchical, collaborative, competitive)")
	f.IntP("rounds", "n", 5, "Questions per session")
	f.StringSliceP("bank", "b", nil, "Extra question bank JSON files (repeatable)")
	f.StringP("lang", "l", "en", "Feedback language (en, ru)")

	_ = cmd.MarkFlagRequired("student")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export student results as JSON or CSV",
		RunE:  runExport,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.String("format", "json", "Export format (json, csv)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("adaptutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/adaptutor")
	v.AddConfigPath("/etc/adaptutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	cat, err := loadCatalog(db, v.GetStringSlice("bank"))
	if err != nil {
		return fmt.Errorf("load question bank: %w", err)
	}
	slog.Info("question bank loaded", "topics", len(cat.Topics()), "questions", cat.Size())

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var grader engine.Grader
	if v.GetBool("llm-grader") {
		client := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
		if err := client.Ping(context.Background()); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM grader enabled", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		grader = client
	}

	rec := store.NewRecorder(db)
	defer rec.Close()

	cfg := model.TutorConfig{
		SecureCookies: v.GetBool("secure-cookies"),
		LLMGrader:     v.GetBool("llm-grader"),
	}
	h := handler.New(db, rec, cat, grader, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"topics", len(cat.Topics()),
		"llm_grader", cfg.LLMGrader,
	)
	return http.ListenAndServe(addr, r)
}

func runSession(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cat, err := loadCatalog(db, v.GetStringSlice("bank"))
	if err != nil {
		return fmt.Errorf("load question bank: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	profile, err := findOrCreateStudent(db, cat, v)
	if err != nil {
		return err
	}

	mode, err := model.ParseCoordinationMode(v.GetString("mode"))
	if err != nil {
		return err
	}

	sess, err := engine.NewSession(engine.Config{
		Student: profile,
		Mode:    mode,
		Catalog: cat,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	rec := store.NewRecorder(db)
	defer rec.Close()

	fmt.Println(appI18n.Td(ctx, "SessionWelcome", map[string]any{
		"Name": profile.Name,
		"Mode": string(mode),
	}))

	scanner := bufio.NewScanner(os.Stdin)
	rounds := v.GetInt("rounds")
	for i := 0; i < rounds; i++ {
		prompt := sess.NextQuestion()
		fmt.Println()
		fmt.Println(appI18n.Td(ctx, "SessionQuestion", map[string]any{
			"Round":      prompt.Round,
			"Topic":      prompt.Question.Topic,
			"Difficulty": string(prompt.Question.Difficulty),
		}))
		fmt.Printf("%s %s\n> ", stylePrefix(ctx, profile.Preferences.Style), prompt.Question.Text)

		if !scanner.Scan() {
			break
		}
		result, err := sess.Submit(ctx, scanner.Text())
		if err != nil {
			return fmt.Errorf("evaluate response: %w", err)
		}
		if result.Quit {
			fmt.Println(appI18n.T(ctx, result.FeedbackID))
			break
		}

		rec.Record(result.Record)
		fmt.Println(appI18n.T(ctx, result.FeedbackID))
		fmt.Println(appI18n.Td(ctx, "SessionReward", map[string]any{
			"Reward": fmt.Sprintf("%.2f", result.Reward),
			"Total":  fmt.Sprintf("%.2f", sess.TotalReward()),
		}))
		fmt.Println(appI18n.Td(ctx, "SessionSampleAnswer", map[string]any{
			"Answer": result.SampleAnswer,
		}))
	}

	summary := sess.Summarize()
	rec.Summarize(summary)
	if err := db.SaveStudent(profile); err != nil {
		return fmt.Errorf("save student: %w", err)
	}

	fmt.Println()
	fmt.Println(appI18n.Tp(ctx, "SessionRounds", summary.Rounds))
	fmt.Printf("  total reward:      %.2f\n", summary.TotalReward)
	fmt.Printf("  average reward:    %.2f\n", summary.AverageReward)
	fmt.Printf("  engagement:        %s (%.2f)\n", summary.EngagementLevel, summary.EngagementScore)
	fmt.Printf("  trend:             %s\n", summary.ImprovementTrend)
	if len(profile.ImprovementAreas) > 0 {
		fmt.Printf("  focus areas:       %s\n", strings.Join(profile.ImprovementAreas, ", "))
	}
	fmt.Println(appI18n.T(ctx, "SessionGoodbye"))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch strings.ToLower(v.GetString("format")) {
	case "csv":
		return db.WriteInteractionsCSV(w)
	case "json":
		export, err := db.ExportAll()
		if err != nil {
			return fmt.Errorf("export results: %w", err)
		}
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		_, _ = fmt.Fprintln(w)
		return nil
	default:
		return fmt.Errorf("unknown export format %q", v.GetString("format"))
	}
}

// loadCatalog merges the embedded bank with extra files and records the
// combined hash so exports can tell which bank produced the results.
func loadCatalog(db *store.Store, extra []string) (*catalog.Catalog, error) {
	cat, err := catalog.LoadFiles(extra)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	for _, path := range extra {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		h.Write(data)
	}
	hash := hex.EncodeToString(h.Sum(nil))

	stored, err := db.GetMetadata("bank_hash")
	if err != nil {
		return nil, fmt.Errorf("check bank hash: %w", err)
	}
	if stored != "" && stored != hash {
		slog.Warn("question bank changed since last run", "old", stored[:8], "new", hash[:8])
	}
	if err := db.SetMetadata("bank_hash", hash); err != nil {
		return nil, fmt.Errorf("record bank hash: %w", err)
	}
	return cat, nil
}

func findOrCreateStudent(db *store.Store, cat *catalog.Catalog, v *viper.Viper) (*model.StudentProfile, error) {
	name := v.GetString("student")
	students, err := db.ListStudents()
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	for _, p := range students {
		if p.Name == name {
			slog.Info("resuming student profile", "id", p.ID, "name", p.Name,
				"sessions", p.SessionCount)
			return p, nil
		}
	}

	difficulty, err := model.ParseDifficulty(v.GetString("difficulty"))
	if err != nil {
		return nil, err
	}
	topics := v.GetStringSlice("topics")
	for _, t := range topics {
		if !cat.HasTopic(t) {
			return nil, fmt.Errorf("unknown topic %q (have: %s)", t, strings.Join(cat.Topics(), ", "))
		}
	}

	prefs := model.Preferences{
		Topics:     topics,
		Difficulty: difficulty,
		Style:      model.ParseLearningStyle(v.GetString("style")),
	}
	p := model.NewStudentProfile(uuid.NewString(), name, prefs, cat.Topics())
	if err := db.SaveStudent(p); err != nil {
		return nil, fmt.Errorf("save student: %w", err)
	}
	slog.Info("created student profile", "id", p.ID, "name", p.Name)
	return p, nil
}

func stylePrefix(ctx context.Context, style model.LearningStyle) string {
	var id string
	switch style {
	case model.StyleVisual:
		id = "StylePromptVisual"
	case model.StyleAuditory:
		id = "StylePromptAuditory"
	case model.StyleKinesthetic:
		id = "StylePromptKinesthetic"
	default:
		id = "StylePromptReading"
	}
	return appI18n.T(ctx, id)
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or TUTOR_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
