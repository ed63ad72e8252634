package models

import "time"

// ContactSubmission is a stored contact form. The phone number is kept only in
// encrypted form.
type ContactSubmission struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	PhoneEncrypted     *string   `db:"phone_encrypted" json:"-"`
	Role               *string   `db:"role" json:"role"`
	School             *string   `db:"school" json:"school"`
	Grade              *string   `db:"grade" json:"grade"`
	TargetUniversities *string   `db:"target_universities" json:"targetUniversities"`
	Message            string    `db:"message" json:"message"`
	HowDidYouHear      *string   `db:"how_did_you_hear" json:"howDidYouHear"`
	AgreeToContact     bool      `db:"agree_to_contact" json:"agreeToContact"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}
