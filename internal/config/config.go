package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the surface the workflows consume: payment routing, throttling
// and file limits. Everything comes from the environment with defaults that
// match the production deployment.
type Config struct {
	// Local payment routing. Amounts at or below LocalTierThreshold go to
	// VPAPrimary, anything above goes to VPAHigh. An amount equal to
	// SplitAmount gets three suggested partial transfers in the
	// instructions.
	VPAPrimary         string
	VPAHigh            string
	LocalTierThreshold float64
	SplitAmount        float64

	// International routing instructions.
	RemittanceService string
	IntlAccountAlias  string
	IntlPayeeName     string
	IntlReason        string

	// Staff contact shown on concierge plans.
	StaffContact string
	StaffChatID  int64

	// Receipt constraints and storage.
	MaxReceiptBytes int64
	ReceiptsDir     string
	ReceiptsBaseURL string

	// Ticket throttling.
	TicketWindowSeconds int
	TicketsPerWindow    int

	// General per-actor throttling.
	DefaultLimitRequests int
	DefaultLimitSeconds  int
	ReceiptLimitRequests int
	ReceiptLimitSeconds  int

	// Plan catalog cache TTL in seconds.
	PlanCacheSeconds int

	// Staff HTTP API.
	APIAddr string
	APIKey  string
}

func FromEnv() Config {
	return Config{
		VPAPrimary:         strings.TrimSpace(os.Getenv("VPA_PRIMARY")),
		VPAHigh:            strings.TrimSpace(os.Getenv("VPA_HIGH")),
		LocalTierThreshold: getEnvFloat("LOCAL_TIER_THRESHOLD", 2000),
		SplitAmount:        getEnvFloat("SPLIT_AMOUNT", 5000),

		RemittanceService: getEnvDefault("INTL_REMITTANCE_SERVICE", "Wise"),
		IntlAccountAlias:  strings.TrimSpace(os.Getenv("INTL_ACCOUNT_ALIAS")),
		IntlPayeeName:     strings.TrimSpace(os.Getenv("INTL_PAYEE_NAME")),
		IntlReason:        getEnvDefault("INTL_REASON", "Subscription"),

		StaffContact: getEnvDefault("STAFF_CONTACT", "@support"),
		StaffChatID:  getEnvInt64("STAFF_CHAT_ID", 0),

		MaxReceiptBytes: getEnvInt64("MAX_RECEIPT_MB", 5) * 1024 * 1024,
		ReceiptsDir:     getEnvDefault("RECEIPTS_DIR", "receipts"),
		ReceiptsBaseURL: getEnvDefault("RECEIPTS_BASE_URL", "http://localhost:8000"),

		TicketWindowSeconds: getEnvIntDefault("TICKET_WINDOW_SECONDS", 3600),
		TicketsPerWindow:    getEnvIntDefault("TICKETS_PER_WINDOW", 3),

		DefaultLimitRequests: getEnvIntDefault("RATE_LIMIT_REQUESTS", 10),
		DefaultLimitSeconds:  getEnvIntDefault("RATE_LIMIT_SECONDS", 60),
		ReceiptLimitRequests: getEnvIntDefault("RECEIPT_LIMIT_REQUESTS", 3),
		ReceiptLimitSeconds:  getEnvIntDefault("RECEIPT_LIMIT_SECONDS", 300),

		PlanCacheSeconds: getEnvIntDefault("PLAN_CACHE_SECONDS", 300),

		APIAddr: getEnvDefault("API_ADDR", ":8000"),
		APIKey:  strings.TrimSpace(os.Getenv("API_KEY")),
	}
}

func getEnvDefault(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvInt64(name string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
