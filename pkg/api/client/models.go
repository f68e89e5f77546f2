package client

import "time"

// User types accepted at registration.
const (
	UserTypeLimitedPartner = "Limited Partner"
	UserTypeFundManager    = "Fund Manager"
	UserTypeAdmin          = "Admin"
)

// Account verification statuses reported by the backend.
const (
	UserStatusPending   = "Pending Verification"
	UserStatusVerified  = "Verified"
	UserStatusSuspended = "Suspended"
)

// User reflects API user payloads. The session caches a copy that may be
// stale until explicitly refreshed.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CompanyName  string    `json:"company_name,omitempty"`
	UserType     string    `json:"user_type"`
	IsAccredited bool      `json:"is_accredited"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName joins the user's first and last name for display.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Fund describes an investable fund. MinInvestment is whole USD.
type Fund struct {
	ID              string     `json:"id"`
	Symbol          string     `json:"symbol"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	MinInvestment   int64      `json:"min_investment"`
	Carry           string     `json:"carry"`
	ManagementFee   string     `json:"management_fee"`
	Status          string     `json:"status"`
	FundType        string     `json:"fund_type"`
	GPName          string     `json:"gp_name"`
	TargetCloseDate *time.Time `json:"target_close_date,omitempty"`
	Performance     string     `json:"performance,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FeaturedFund is the reduced fund record served on the home view.
type FeaturedFund struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Symbol          string     `json:"symbol"`
	MinInvestment   int64      `json:"min_investment"`
	Carry           string     `json:"carry"`
	Description     string     `json:"description,omitempty"`
	TargetCloseDate *time.Time `json:"target_close_date,omitempty"`
	Performance     string     `json:"performance,omitempty"`
	FundType        string     `json:"fund_type,omitempty"`
}

// Company describes a portfolio company in the catalog.
type Company struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Symbol       string   `json:"symbol"`
	LeadInvestor string   `json:"lead_investor"`
	CoInvestors  []string `json:"co_investors,omitempty"`
	Sector       string   `json:"sector"`
	Valuation    string   `json:"valuation"`
	Round        string   `json:"round"`
	Traction     string   `json:"traction"`
}

// Deal describes a syndicate invitation in the catalog.
type Deal struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Symbol      string    `json:"symbol"`
	Sector      string    `json:"sector"`
	Round       string    `json:"round"`
	Valuation   string    `json:"valuation"`
	Syndicate   string    `json:"syndicate"`
	CoInvestors []string  `json:"co_investors,omitempty"`
	InvitedDate time.Time `json:"invited_date"`
	Deadline    time.Time `json:"deadline"`
}

// Catalog is the unauthenticated /featured payload.
type Catalog struct {
	FeaturedFunds []FeaturedFund `json:"featured_funds"`
	AllFunds      []Fund         `json:"all_funds"`
	AllCompanies  []Company      `json:"all_companies"`
	AllDeals      []Deal         `json:"all_deals"`
}

// Investment statuses assigned by the backend.
const (
	InvestmentPending   = "Pending"
	InvestmentCompleted = "Completed"
	InvestmentFailed    = "Failed"
)

// Investment is a capital commitment as recorded by the backend. The client
// never assigns ids or statuses, it only displays what the backend returns.
type Investment struct {
	ID         string    `json:"id"`
	FundID     string    `json:"fund_id"`
	FundName   string    `json:"fund_name"`
	FundSymbol string    `json:"fund_symbol"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
