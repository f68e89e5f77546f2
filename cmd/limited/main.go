package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/bgoutham/limited/internal/config"
	"github.com/bgoutham/limited/internal/credstore"
	"github.com/bgoutham/limited/internal/invest"
	"github.com/bgoutham/limited/internal/money"
	"github.com/bgoutham/limited/internal/portfolio"
	"github.com/bgoutham/limited/internal/session"
	"github.com/bgoutham/limited/pkg/api/client"
	"github.com/bgoutham/limited/pkg/logger"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "register":
		err = commandRegister(args)
	case "logout":
		err = commandLogout(args)
	case "whoami":
		err = commandWhoami(args)
	case "funds":
		err = commandFunds(args)
	case "invest":
		err = commandInvest(args)
	case "portfolio":
		err = commandPortfolio(args)
	case "profile":
		err = commandProfile(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newSession builds the process-wide session manager over the persisted
// credential store and restores any prior sign-in.
func newSession(apiOverride string) (*session.Manager, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(apiOverride) != "" {
		cfg.APIBaseURL = apiOverride
	}
	store, err := credstore.OpenSQLite(cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := session.NewManager(session.Config{
		BaseURL:    cfg.APIBaseURL,
		Store:      store,
		Logger:     logger.New("cli", logger.ParseLevel(cfg.LogLevel)),
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := mgr.Restore(); err != nil {
		store.Close()
		return nil, nil, err
	}
	cleanup := func() { store.Close() }
	return mgr, cleanup, nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:8000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}

	secret := strings.TrimSpace(*password)
	if secret == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	mgr, cleanup, err := newSession(*apiBase)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	user, err := mgr.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", user.FullName(), user.Email)
	if exp, ok := mgr.TokenExpiry(); ok {
		fmt.Printf("session valid until %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	company := fs.String("company", "", "Company name")
	userType := fs.String("type", client.UserTypeLimitedPartner, "Account type (Limited Partner|Fund Manager)")
	accredited := fs.Bool("accredited", false, "Declare accredited-investor status")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:8000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	if strings.TrimSpace(*first) == "" {
		return errors.New("--first is required")
	}
	if strings.TrimSpace(*last) == "" {
		return errors.New("--last is required")
	}

	secret := strings.TrimSpace(*password)
	if secret == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	mgr, cleanup, err := newSession(*apiBase)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	user, err := mgr.Register(ctx, client.RegisterInput{
		Email:        *email,
		Password:     secret,
		FirstName:    *first,
		LastName:     *last,
		CompanyName:  *company,
		UserType:     *userType,
		IsAccredited: *accredited,
	})
	if err != nil {
		return err
	}
	fmt.Printf("account created for %s, status %s\n", user.Email, user.Status)
	fmt.Println("sign in with 'limited login' to continue")
	return nil
}

func commandLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()

	mgr.Logout()
	fmt.Println("signed out")
	return nil
}

func commandWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "Fetch the profile from the backend instead of the cached copy")
	fs.Parse(args)

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()

	user, ok := mgr.User()
	if !ok {
		return errors.New("not signed in; use 'limited login'")
	}
	if *refresh {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		user, err = mgr.RefreshProfile(ctx)
		if err != nil {
			return err
		}
	}
	printUser(user)
	if exp, ok := mgr.TokenExpiry(); ok {
		fmt.Printf("session expires\t%s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func printUser(user client.User) {
	fmt.Printf("name\t%s\n", user.FullName())
	fmt.Printf("email\t%s\n", user.Email)
	if user.CompanyName != "" {
		fmt.Printf("company\t%s\n", user.CompanyName)
	}
	fmt.Printf("type\t%s\n", user.UserType)
	fmt.Printf("status\t%s\n", user.Status)
	fmt.Printf("accredited\t%t\n", user.IsAccredited)
}

func commandFunds(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: limited funds [list|show]")
	}
	sub := args[0]
	switch sub {
	case "list":
		return fundsList(args[1:])
	case "show":
		return fundsShow(args[1:])
	default:
		return fmt.Errorf("unknown funds command: %s", sub)
	}
}

func fundsList(args []string) error {
	fs := flag.NewFlagSet("funds list", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of funds to display")
	fs.Parse(args)

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	funds, err := mgr.API().Funds(ctx)
	if err != nil {
		return err
	}
	count := len(funds)
	if *limit > 0 && *limit < count {
		count = *limit
	}
	for i := 0; i < count; i++ {
		f := funds[i]
		fmt.Printf("%s\t%s\t%s\tmin %s\tcarry %s\t%s\n",
			f.ID, f.Symbol, f.Name, money.FormatUSDInt(f.MinInvestment), f.Carry, f.Status)
	}
	return nil
}

func fundsShow(args []string) error {
	fs := flag.NewFlagSet("funds show", flag.ExitOnError)
	fundID := fs.String("fund", "", "Fund identifier")
	fs.Parse(args)

	if strings.TrimSpace(*fundID) == "" {
		return errors.New("--fund is required")
	}

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	fund, err := mgr.API().Fund(ctx, *fundID)
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("fund %s not found", *fundID)
		}
		return err
	}
	fmt.Printf("name\t%s (%s)\n", fund.Name, fund.Symbol)
	if fund.Description != "" {
		fmt.Printf("about\t%s\n", fund.Description)
	}
	fmt.Printf("minimum\t%s\n", money.FormatUSDInt(fund.MinInvestment))
	fmt.Printf("carry\t%s\n", fund.Carry)
	fmt.Printf("mgmt fee\t%s\n", fund.ManagementFee)
	fmt.Printf("type\t%s\n", fund.FundType)
	fmt.Printf("gp\t%s\n", fund.GPName)
	fmt.Printf("status\t%s\n", fund.Status)
	if fund.Performance != "" {
		fmt.Printf("performance\t%s\n", fund.Performance)
	}
	if fund.TargetCloseDate != nil {
		fmt.Printf("target close\t%s\n", fund.TargetCloseDate.Format("2006-01-02"))
	}
	return nil
}

func commandInvest(args []string) error {
	fs := flag.NewFlagSet("invest", flag.ExitOnError)
	fundID := fs.String("fund", "", "Fund identifier")
	amount := fs.String("amount", "", "Amount in USD (defaults to the fund minimum)")
	wait := fs.Bool("wait", true, "Show the portfolio after the hand-off delay")
	fs.Parse(args)

	if strings.TrimSpace(*fundID) == "" {
		return errors.New("--fund is required")
	}

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()
	if !mgr.IsAuthenticated() {
		return errors.New("please login first using 'limited login'")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fund, err := mgr.API().Fund(ctx, *fundID)
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("fund %s not found", *fundID)
		}
		return err
	}

	handoff := make(chan string, 1)
	opts := []invest.Option{invest.WithRedirectDelay(cfg.RedirectDelay)}
	if *wait {
		opts = append(opts, invest.WithNavigator(func(path string) { handoff <- path }))
	}
	wf := invest.New(fund, mgr.API(), opts...)
	defer wf.Close()
	if strings.TrimSpace(*amount) != "" {
		wf.SetAmount(*amount)
	}

	if err := wf.Submit(ctx); err != nil {
		return fmt.Errorf("%s", wf.Err())
	}
	if wf.Phase() != invest.PhaseSucceeded {
		// Validation failed before any network call.
		return errors.New(wf.Err())
	}

	inv, _ := wf.Result()
	fmt.Printf("investment submitted: %s in %s, status %s\n",
		money.FormatUSD(inv.Amount), fund.Name, inv.Status)
	if !*wait {
		return nil
	}

	fmt.Println("opening your portfolio...")
	select {
	case <-handoff:
		return showPortfolio(ctx, mgr)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func commandPortfolio(args []string) error {
	fs := flag.NewFlagSet("portfolio", flag.ExitOnError)
	fs.Parse(args)

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()
	if !mgr.IsAuthenticated() {
		return errors.New("please login first using 'limited login'")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return showPortfolio(ctx, mgr)
}

func showPortfolio(ctx context.Context, mgr *session.Manager) error {
	investments, err := mgr.API().Investments(ctx)
	if err != nil {
		return err
	}
	summary := portfolio.Aggregate(investments)
	fmt.Printf("total invested\t%s\n", money.FormatUSD(summary.Total))
	fmt.Printf("active investments\t%d\n", summary.ActiveCount)
	fmt.Printf("pending\t%s\n", money.FormatUSD(summary.PendingTotal))
	if len(investments) == 0 {
		fmt.Println("no investments yet; use 'limited funds list' to browse")
		return nil
	}
	fmt.Println()
	for _, inv := range investments {
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			inv.FundSymbol, inv.FundName, money.FormatUSD(inv.Amount),
			inv.Status, inv.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func commandProfile(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: limited profile [show|update]")
	}
	sub := args[0]
	switch sub {
	case "show":
		return commandWhoami(append([]string{"-refresh"}, args[1:]...))
	case "update":
		return profileUpdate(args[1:])
	default:
		return fmt.Errorf("unknown profile command: %s", sub)
	}
}

func profileUpdate(args []string) error {
	fs := flag.NewFlagSet("profile update", flag.ExitOnError)
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	company := fs.String("company", "", "Company name")
	accredited := fs.String("accredited", "", "Accredited-investor status (true|false)")
	fs.Parse(args)

	update := client.ProfileUpdate{}
	if *first != "" {
		update.FirstName = first
	}
	if *last != "" {
		update.LastName = last
	}
	if *company != "" {
		update.CompanyName = company
	}
	switch strings.ToLower(strings.TrimSpace(*accredited)) {
	case "":
	case "true":
		v := true
		update.IsAccredited = &v
	case "false":
		v := false
		update.IsAccredited = &v
	default:
		return errors.New("--accredited must be true or false")
	}
	if update.FirstName == nil && update.LastName == nil && update.CompanyName == nil && update.IsAccredited == nil {
		return errors.New("nothing to update; pass --first, --last, --company or --accredited")
	}

	mgr, cleanup, err := newSession("")
	if err != nil {
		return err
	}
	defer cleanup()
	if !mgr.IsAuthenticated() {
		return errors.New("please login first using 'limited login'")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	user, err := mgr.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	fmt.Println("profile updated")
	printUser(user)
	return nil
}

func printUsage() {
	fmt.Printf("limited CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	limited login --email user@example.com [--password secret] [--api http://localhost:8000]
	limited register --email <email> --first <name> --last <name> [--company name] [--type "Limited Partner"] [--accredited]
	limited logout
	limited whoami [--refresh]
	limited funds list [--limit N]
	limited funds show --fund <fund-id>
	limited invest --fund <fund-id> [--amount N] [--wait=false]
	limited portfolio
	limited profile show
	limited profile update [--first name] [--last name] [--company name] [--accredited true|false]
	limited version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
