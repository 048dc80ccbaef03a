package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260201-000000",
		Description: "Initial schema",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS analyses (
				id TEXT PRIMARY KEY,
				url TEXT NOT NULL,
				domain TEXT NOT NULL,
				business_category TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				locale TEXT NOT NULL DEFAULT 'en',
				error_message TEXT,
				score_json TEXT,
				details_json TEXT,
				findings_json TEXT,
				recommendation_json TEXT,
				contact_name TEXT,
				contact_email TEXT,
				contact_status TEXT NOT NULL DEFAULT 'not_contacted',
				email_sent INTEGER NOT NULL DEFAULT 0,
				email_sent_at TEXT,
				email_opened INTEGER NOT NULL DEFAULT 0,
				email_opened_at TEXT,
				notes TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				analyzed_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status)`,
			`CREATE INDEX IF NOT EXISTS idx_analyses_domain ON analyses(domain)`,
			`CREATE INDEX IF NOT EXISTS idx_analyses_category ON analyses(business_category)`,
			`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`,
			`CREATE TABLE IF NOT EXISTS rate_limits (
				day TEXT PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
		},
	})
}
