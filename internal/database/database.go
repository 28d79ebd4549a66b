package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"arthings/internal/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// driverName is go-sqlite3 with unicode_lower registered on every
// connection. SQLite's built-in LOWER only folds ASCII.
const driverName = "sqlite3_arthings"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

func Initialize(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL,
			price_per_day REAL NOT NULL,
			price_unit TEXT NOT NULL DEFAULT 'day',
			city TEXT NOT NULL DEFAULT '',
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			views INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS item_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			image_path TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS rentals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			renter_id INTEGER NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			days INTEGER NOT NULL,
			price_per_day REAL NOT NULL,
			total_price REAL NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			FOREIGN KEY (renter_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rental_id INTEGER NOT NULL,
			from_user_id INTEGER NOT NULL,
			to_user_id INTEGER NOT NULL,
			score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
			comment TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (rental_id) REFERENCES rentals(id) ON DELETE CASCADE,
			FOREIGN KEY (from_user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (to_user_id) REFERENCES users(id) ON DELETE CASCADE,
			UNIQUE(rental_id, from_user_id, to_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			UNIQUE(user_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS rental_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS legal_documents (
			type TEXT PRIMARY KEY,
			version TEXT NOT NULL,
			file TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS legal_consents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			document_type TEXT NOT NULL,
			document_version TEXT NOT NULL,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			accepted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			UNIQUE(user_id, document_type, document_version)
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_uk TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS cities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS csrf_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS verification_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS system_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
		`CREATE INDEX IF NOT EXISTS idx_item_images_item_id ON item_images(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rentals_item_id ON rentals(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rentals_renter_id ON rentals(renter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_to_user_id ON ratings(to_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rental_requests_user_id ON rental_requests(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_csrf_tokens_user_id ON csrf_tokens(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	if err := seedReferenceData(db); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	return nil
}

var seedCategories = [][4]string{
	{"electronics", "Electronics", "Електроніка", "📷"},
	{"emergency", "Emergency & Survival", "Надзвичайні ситуації", "🔦"},
	{"tools", "Tools & Equipment", "Інструменти", "🔧"},
	{"outdoor", "Outdoor & Camping", "Активний відпочинок", "⛺"},
	{"home", "Home & Garden", "Дім і сад", "🏠"},
	{"sports", "Sports & Fitness", "Спорт та фітнес", "⚽"},
	{"vehicles", "Vehicles & Transport", "Транспорт", "🚗"},
	{"music", "Music & Audio", "Музика та аудіо", "🎸"},
	{"party", "Party & Events", "Свята та події", "🎉"},
	{"baby", "Baby & Kids", "Дитячі товари", "👶"},
	{"fashion", "Fashion & Accessories", "Мода та аксесуари", "👗"},
	{"other", "Other", "Інше", "📦"},
}

var seedCities = []string{
	"Kyiv", "Kharkiv", "Odesa", "Dnipro", "Donetsk", "Zaporizhzhia",
	"Lviv", "Kryvyi Rih", "Mykolaiv", "Mariupol", "Luhansk", "Vinnytsia",
	"Makiivka", "Simferopol", "Kherson", "Poltava", "Chernihiv", "Cherkasy",
	"Zhytomyr", "Sumy", "Rivne", "Ivano-Frankivsk", "Ternopil", "Lutsk", "Uzhhorod",
}

var seedLegalDocuments = [][3]string{
	{"public-offer", "1.0", "PUBLIC-OFFER-AGREEMENT.docx"},
	{"privacy-policy", "1.0", "privacy-policy-arthings.docx"},
	{"terms-of-performance", "1.0", "terms-of-performance-arthings.docx"},
}

func seedReferenceData(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range seedCategories {
		_, err := tx.Exec(`
			INSERT INTO categories (id, name, name_uk, icon) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, name_uk = excluded.name_uk, icon = excluded.icon
		`, c[0], c[1], c[2], c[3])
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c[0], err)
		}
	}

	for _, name := range seedCities {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO cities (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to seed city %s: %w", name, err)
		}
	}

	for _, d := range seedLegalDocuments {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO legal_documents (type, version, file) VALUES (?, ?, ?)`, d[0], d[1], d[2]); err != nil {
			return fmt.Errorf("failed to seed legal document %s: %w", d[0], err)
		}
	}

	if _, err := tx.Exec(`INSERT OR IGNORE INTO system_settings (key, value) VALUES ('registration_enabled', 'true')`); err != nil {
		return fmt.Errorf("failed to seed system settings: %w", err)
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// escapeLike escapes LIKE wildcards; queries using it declare ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func notFound(what string) error {
	return apperr.NotFound("%s not found", what)
}
