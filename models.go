package portal

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the provider-owned credential record. The portal core never
// reads it directly; it belongs to provider/local.
type Account struct {
	bun.BaseModel  `bun:"table:accounts,alias:acct"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Profile is the document-store record keyed by the provider identifier.
// Role is written exactly once, at registration.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Address       string     `bun:"address" json:"address,omitempty"`
	City          string     `bun:"city" json:"city,omitempty"`
	State         string     `bun:"state" json:"state,omitempty"`
	ZipCode       string     `bun:"zip_code" json:"zip_code,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Enrollment is a device protection subscription for a profile.
type Enrollment struct {
	bun.BaseModel     `bun:"table:enrollments,alias:enr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProfileID         uuid.UUID  `bun:"profile_id,notnull,type:uuid" json:"profile_id,omitempty"`
	Profile           *Profile   `bun:"rel:belongs-to,join:profile_id=id" json:"profile,omitempty"`
	Plan              PlanKey    `bun:"plan,notnull" json:"plan,omitempty"`
	AddOns            []string   `bun:"add_ons,type:jsonb" json:"add_ons,omitempty"`
	DeviceBrand       string     `bun:"device_brand,notnull" json:"device_brand,omitempty"`
	DeviceModel       string     `bun:"device_model,notnull" json:"device_model,omitempty"`
	PurchaseDate      *time.Time `bun:"purchase_date" json:"purchase_date,omitempty"`
	DeviceValueCents  int        `bun:"device_value_cents" json:"device_value_cents,omitempty"`
	PhotoCount        int        `bun:"photo_count" json:"photo_count,omitempty"`
	MonthlyTotalCents int        `bun:"monthly_total_cents,notnull" json:"monthly_total_cents,omitempty"`
	TermsAcceptedAt   *time.Time `bun:"terms_accepted_at,notnull" json:"terms_accepted_at,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
