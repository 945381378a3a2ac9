package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eventhive/ticketcore/internal/identity"
	"github.com/eventhive/ticketcore/internal/prefs"
	"github.com/eventhive/ticketcore/internal/profile"
	profilerepo "github.com/eventhive/ticketcore/internal/profile/repo"
	"github.com/eventhive/ticketcore/internal/router"
	"github.com/eventhive/ticketcore/internal/session"
	"github.com/eventhive/ticketcore/pkg/database"
	"github.com/eventhive/ticketcore/pkg/utilities"
)

const demoEmail = "demo@organizer.com"

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting ticketcore session service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prefPath := os.Getenv("PREFS_PATH")
	if prefPath == "" {
		prefPath = ".ticketcore/prefs.json"
	}
	prefStore, err := prefs.OpenFile(prefPath)
	if err != nil {
		sugar.Fatalf("open prefs: %v", err)
	}

	provider, store, err := buildBackend(ctx, sugar)
	if err != nil {
		sugar.Fatalf("backend setup: %v", err)
	}

	superAdminEmail := os.Getenv("SUPER_ADMIN_EMAIL")
	if superAdminEmail == "" {
		sugar.Warn("SUPER_ADMIN_EMAIL is not set; super admin resolution is disabled")
	}

	resolver := profile.NewResolver(store, provider, prefStore, superAdminEmail, sugar)
	mgr := session.NewManager(provider, store, resolver, prefStore, sugar)
	mgr.Start(ctx)
	defer mgr.Close()

	handler := session.NewHandler(mgr, session.NewModal(), sugar)
	srv := &http.Server{
		Addr:    listenAddr(),
		Handler: router.RegisterRoutes(sugar, handler),
	}

	go func() {
		sugar.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// buildBackend wires the identity provider and profile store. With
// BACKEND_URL and BACKEND_ANON_KEY set, the real backend is used; otherwise
// the service runs in demo mode on in-memory implementations with a seeded
// organizer account.
func buildBackend(ctx context.Context, sugar *zap.SugaredLogger) (identity.Provider, profile.Store, error) {
	backendURL := os.Getenv("BACKEND_URL")
	backendKey := os.Getenv("BACKEND_ANON_KEY")

	if backendURL == "" || backendKey == "" {
		sugar.Warn("backend not configured, running in demo mode with mock authentication")
		return buildDemoBackend(ctx)
	}

	provider := identity.NewRemote(identity.RemoteConfig{BaseURL: backendURL, AnonKey: backendKey}, sugar)

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	repo := profilerepo.NewRepo(db)
	if err := repo.EnsureTables(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure tables: %w", err)
	}
	return provider, repo, nil
}

func buildDemoBackend(ctx context.Context) (identity.Provider, profile.Store, error) {
	provider := identity.NewMemory()
	store := profilerepo.NewMemory()

	ident := provider.Seed(demoEmail, "demo-password", nil)
	err := store.InsertOrganizer(ctx, ident.ID, ident.Email, profile.OrganizerInput{
		OrganizerName:  "Demo Organizer",
		Phone:          "+1234567890",
		BusinessType:   "Event Management",
		CompanyName:    "Demo Events Co.",
		TaxID:          "123456789",
		BillingAddress: "123 Demo Street",
		ContactPerson:  "Demo Person",
		InvoiceEmail:   "invoice@demo.com",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("seed demo organizer: %w", err)
	}

	// Establish the demo session up front so the bootstrapper resolves it.
	if _, err := provider.SignIn(ctx, demoEmail, "demo-password"); err != nil {
		return nil, nil, fmt.Errorf("demo sign-in: %w", err)
	}
	return provider, store, nil
}

func listenAddr() string {
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		return addr
	}
	return "0.0.0.0:8431"
}
