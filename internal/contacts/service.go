package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetlog/meetlog/internal/db"
	"github.com/meetlog/meetlog/internal/sanitize"
)

// ErrNotFound is returned when no contact matches the given identifier.
var ErrNotFound = errors.New("contact not found")

// ErrNotClaimable is returned by Claim when the contact is already owned by
// an account; ownership is immutable except for the channel-to-account step.
var ErrNotClaimable = errors.New("contact is not claimable")

const contactColumns = `id, owner_kind, owner_ref, name, phone, email, instagram, linkedin, website,
	location_met, location_from, location_met_lat, location_met_lon, location_from_lat, location_from_lon,
	date_met, birthday, context, raw_content, source_message_ref, is_hidden, created_at, updated_at`

// Service is the PostgreSQL-backed contact store.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a contact store over the given connection pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Create inserts one contact. The name is sanitized and must be non-empty
// afterwards; optional fields are validated and rejected with a FieldError
// when malformed. Ingestion callers sanitize before calling, so for them an
// invalid optional never reaches this gate.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	name := sanitize.Name(req.Name)
	if name == "" {
		return Contact{}, &FieldError{Field: "name", Reason: "empty after sanitization"}
	}
	if req.Owner.Kind != OwnerAccount && req.Owner.Kind != OwnerChannel {
		return Contact{}, &FieldError{Field: "owner", Reason: "unknown owner kind"}
	}
	if strings.TrimSpace(req.Owner.Ref) == "" {
		return Contact{}, &FieldError{Field: "owner", Reason: "owner ref is required"}
	}
	if err := validateOptional(req.Phone, req.Email, req.Website, req.LinkedIn, req.DateMet, req.Birthday); err != nil {
		return Contact{}, err
	}
	if err := validateGeo("location_met_geo", req.LocationMetGeo); err != nil {
		return Contact{}, err
	}
	if err := validateGeo("location_from_geo", req.LocationFromGeo); err != nil {
		return Contact{}, err
	}

	row := s.pool.QueryRow(ctx, `INSERT INTO contacts (
		owner_kind, owner_ref, name, phone, email, instagram, linkedin, website,
		location_met, location_from, location_met_lat, location_met_lon, location_from_lat, location_from_lon,
		date_met, birthday, context, raw_content, source_message_ref, is_hidden
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, FALSE)
	RETURNING `+contactColumns,
		string(req.Owner.Kind),
		strings.TrimSpace(req.Owner.Ref),
		name,
		db.Text(req.Phone),
		db.Text(req.Email),
		db.Text(sanitize.FreeText(req.Instagram, sanitize.MaxNameLen)),
		db.Text(req.LinkedIn),
		db.Text(req.Website),
		db.Text(sanitize.FreeText(req.LocationMet, 200)),
		db.Text(sanitize.FreeText(req.LocationFrom, 200)),
		geoLat(req.LocationMetGeo),
		geoLon(req.LocationMetGeo),
		geoLat(req.LocationFromGeo),
		geoLon(req.LocationFromGeo),
		dateValue(req.DateMet),
		dateValue(req.Birthday),
		db.Text(sanitize.FreeText(req.Context, 500)),
		db.Text(req.RawContent),
		db.Text(req.SourceMessageRef),
	)
	return scanContact(row)
}

// GetByID returns one contact.
func (s *Service) GetByID(ctx context.Context, id string) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, pgID)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

// List returns the contacts visible to an account: its own plus unclaimed
// bot-channel contacts. Hidden contacts are excluded unless includeHidden.
func (s *Service) List(ctx context.Context, accountID string, includeHidden bool) ([]Contact, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("contacts pool not configured")
	}
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE ((owner_kind = 'account' AND owner_ref = $1) OR owner_kind = 'channel')`
	if !includeHidden {
		query += ` AND is_hidden = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(accountID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

// Update applies a partial interactive edit. Invalid optional values are
// rejected with a FieldError rather than silently dropped; clearing a field
// is done by sending an empty string.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, ErrNotFound
	}

	sets := []string{"updated_at = now()"}
	args := []any{pgID}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		name := sanitize.Name(*req.Name)
		if name == "" {
			return Contact{}, &FieldError{Field: "name", Reason: "empty after sanitization"}
		}
		addSet("name", name)
	}
	if req.Phone != nil {
		if *req.Phone != "" && !sanitize.ValidPhone(*req.Phone) {
			return Contact{}, &FieldError{Field: "phone", Reason: "invalid phone number"}
		}
		addSet("phone", db.Text(*req.Phone))
	}
	if req.Email != nil {
		if *req.Email != "" && !sanitize.ValidEmail(*req.Email) {
			return Contact{}, &FieldError{Field: "email", Reason: "invalid email address"}
		}
		addSet("email", db.Text(*req.Email))
	}
	if req.Instagram != nil {
		addSet("instagram", db.Text(sanitize.FreeText(*req.Instagram, sanitize.MaxNameLen)))
	}
	if req.LinkedIn != nil {
		if *req.LinkedIn != "" && !sanitize.ValidURL(*req.LinkedIn) {
			return Contact{}, &FieldError{Field: "linkedin", Reason: "invalid URL"}
		}
		addSet("linkedin", db.Text(*req.LinkedIn))
	}
	if req.Website != nil {
		if *req.Website != "" && !sanitize.ValidURL(*req.Website) {
			return Contact{}, &FieldError{Field: "website", Reason: "invalid URL"}
		}
		addSet("website", db.Text(*req.Website))
	}
	if req.LocationMet != nil {
		addSet("location_met", db.Text(sanitize.FreeText(*req.LocationMet, 200)))
	}
	if req.LocationFrom != nil {
		addSet("location_from", db.Text(sanitize.FreeText(*req.LocationFrom, 200)))
	}
	if req.DateMet != nil {
		if *req.DateMet != "" && !sanitize.ValidDate(*req.DateMet) {
			return Contact{}, &FieldError{Field: "date_met", Reason: "invalid date"}
		}
		addSet("date_met", dateValue(*req.DateMet))
	}
	if req.Birthday != nil {
		if *req.Birthday != "" && !sanitize.ValidDate(*req.Birthday) {
			return Contact{}, &FieldError{Field: "birthday", Reason: "invalid date"}
		}
		addSet("birthday", dateValue(*req.Birthday))
	}
	if req.Context != nil {
		addSet("context", db.Text(sanitize.FreeText(*req.Context, 500)))
	}

	query := `UPDATE contacts SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + contactColumns
	row := s.pool.QueryRow(ctx, query, args...)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

// SetHidden toggles the visibility flag.
func (s *Service) SetHidden(ctx context.Context, id string, hidden bool) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE contacts SET is_hidden = $2, updated_at = now() WHERE id = $1 RETURNING `+contactColumns,
		pgID, hidden)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

// Claim reassigns an unclaimed bot-channel contact to an account. Ownership
// is otherwise immutable: claiming an account-owned contact fails with
// ErrNotClaimable.
func (s *Service) Claim(ctx context.Context, id, accountID string) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	if strings.TrimSpace(accountID) == "" {
		return Contact{}, fmt.Errorf("account id is required")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE contacts SET owner_kind = 'account', owner_ref = $2, updated_at = now()
		 WHERE id = $1 AND owner_kind = 'channel' RETURNING `+contactColumns,
		pgID, strings.TrimSpace(accountID))
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetByID(ctx, id); getErr == nil {
			return Contact{}, ErrNotClaimable
		}
		return Contact{}, ErrNotFound
	}
	return contact, err
}

// Delete removes one contact.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.pool == nil {
		return fmt.Errorf("contacts pool not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BirthdaysOn returns all non-hidden contacts whose birthday falls on the
// given day, across years.
func (s *Service) BirthdaysOn(ctx context.Context, day time.Time) ([]Contact, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("contacts pool not configured")
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE birthday IS NOT NULL AND is_hidden = FALSE
		   AND to_char(birthday, 'MM-DD') = $1
		 ORDER BY name`,
		day.Format("01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

func validateOptional(phone, email, website, linkedin, dateMet, birthday string) error {
	if phone != "" && !sanitize.ValidPhone(phone) {
		return &FieldError{Field: "phone", Reason: "invalid phone number"}
	}
	if email != "" && !sanitize.ValidEmail(email) {
		return &FieldError{Field: "email", Reason: "invalid email address"}
	}
	if website != "" && !sanitize.ValidURL(website) {
		return &FieldError{Field: "website", Reason: "invalid URL"}
	}
	if linkedin != "" && !sanitize.ValidURL(linkedin) {
		return &FieldError{Field: "linkedin", Reason: "invalid URL"}
	}
	if dateMet != "" && !sanitize.ValidDate(dateMet) {
		return &FieldError{Field: "date_met", Reason: "invalid date"}
	}
	if birthday != "" && !sanitize.ValidDate(birthday) {
		return &FieldError{Field: "birthday", Reason: "invalid date"}
	}
	return nil
}

func validateGeo(field string, geo *Coordinates) error {
	if geo == nil {
		return nil
	}
	if !sanitize.ValidCoordinate(geo.Lat, geo.Lon) {
		return &FieldError{Field: field, Reason: "coordinates out of range"}
	}
	return nil
}

func geoLat(geo *Coordinates) pgtype.Float8 {
	if geo == nil {
		return db.Float8(nil)
	}
	return db.Float8(&geo.Lat)
}

func geoLon(geo *Coordinates) pgtype.Float8 {
	if geo == nil {
		return db.Float8(nil)
	}
	return db.Float8(&geo.Lon)
}

func dateValue(s string) pgtype.Date {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return pgtype.Date{}
	}
	return db.Date(parsed)
}

func dateString(value pgtype.Date) string {
	if !value.Valid {
		return ""
	}
	return value.Time.Format("2006-01-02")
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id                               pgtype.UUID
		ownerKind, ownerRef, name        string
		phone, email, instagram          pgtype.Text
		linkedin, website                pgtype.Text
		locationMet, locationFrom        pgtype.Text
		metLat, metLon, fromLat, fromLon pgtype.Float8
		dateMet, birthday                pgtype.Date
		contextNote, rawContent          pgtype.Text
		sourceMessageRef                 pgtype.Text
		isHidden                         bool
		createdAt, updatedAt             pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &ownerKind, &ownerRef, &name, &phone, &email, &instagram, &linkedin, &website,
		&locationMet, &locationFrom, &metLat, &metLon, &fromLat, &fromLon,
		&dateMet, &birthday, &contextNote, &rawContent, &sourceMessageRef, &isHidden,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return Contact{}, err
	}
	return Contact{
		ID:               db.UUIDToString(id),
		Owner:            Owner{Kind: OwnerKind(ownerKind), Ref: ownerRef},
		Name:             name,
		Phone:            db.TextToString(phone),
		Email:            db.TextToString(email),
		Instagram:        db.TextToString(instagram),
		LinkedIn:         db.TextToString(linkedin),
		Website:          db.TextToString(website),
		LocationMet:      db.TextToString(locationMet),
		LocationFrom:     db.TextToString(locationFrom),
		LocationMetGeo:   pairCoordinates(metLat, metLon),
		LocationFromGeo:  pairCoordinates(fromLat, fromLon),
		DateMet:          dateString(dateMet),
		Birthday:         dateString(birthday),
		Context:          db.TextToString(contextNote),
		RawContent:       db.TextToString(rawContent),
		SourceMessageRef: db.TextToString(sourceMessageRef),
		IsHidden:         isHidden,
		CreatedAt:        db.TimeFromPg(createdAt),
		UpdatedAt:        db.TimeFromPg(updatedAt),
	}, nil
}

func pairCoordinates(lat, lon pgtype.Float8) *Coordinates {
	latPtr, lonPtr := db.Float8Ptr(lat), db.Float8Ptr(lon)
	if latPtr == nil || lonPtr == nil {
		return nil
	}
	return &Coordinates{Lat: *latPtr, Lon: *lonPtr}
}
