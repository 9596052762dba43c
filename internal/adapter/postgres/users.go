package postgres

import (
	"context"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
)

const listUsersSQL = `SELECT id, nom, prenom, numero, email, numero_voie, nom_rue, code_postal, commune
FROM users
ORDER BY id`

// ListUsers returns every user ordered by id. NULL columns read as "".
func (s *Store) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	rows, err := s.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, domain.Store(domain.StageListUsers, "query users", err)
	}
	defer rows.Close()

	var users []domain.UserRecord
	for rows.Next() {
		var (
			u                                                   domain.UserRecord
			last, first, contact, email, number, street, postal *string
			commune                                             *string
		)
		if err := rows.Scan(&u.ID, &last, &first, &contact, &email, &number, &street, &postal, &commune); err != nil {
			return nil, domain.Store(domain.StageListUsers, "scan user", err)
		}
		u.LastName = deref(last)
		u.FirstName = deref(first)
		u.ContactNumber = deref(contact)
		u.Email = deref(email)
		u.StreetNumber = deref(number)
		u.StreetName = deref(street)
		u.PostalCode = deref(postal)
		u.Commune = deref(commune)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Store(domain.StageListUsers, "iterate users", err)
	}
	return users, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
