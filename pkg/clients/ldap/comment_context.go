package ldap

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"github.com/apprenticelog/apprenticelog/pkg/common/structs"
	"github.com/apprenticelog/apprenticelog/pkg/logger"
	"github.com/apprenticelog/apprenticelog/pkg/utils"
)

var (
	ErrNoUserFound = errors.New("no LDAP entries found for user")
)

// LDAPClient looks up the comment context values of a user in the directory
type LDAPClient interface {
	GetCommentContext(ctx context.Context, userID string) (structs.CommentContext, error)
}

// directoryRecord is what the configured attributes are mapped into
type directoryRecord struct {
	TrainingStartDate string `json:"training_start_date"`
	TrainingYear      int    `json:"training_year"`
	TeamName          string `json:"team_name"`
}

// userEntryDN fills the DN template with the user id escaped as an RDN value,
// so the id cannot add components to the DN.
func (l *LDAPConn) userEntryDN(userID string) string {
	return fmt.Sprintf(l.userDN, ldap.EscapeDN(userID))
}

func (l *LDAPConn) GetCommentContext(ctx context.Context, userID string) (structs.CommentContext, error) {
	log := logger.Logger(ctx).WithField("userID", userID)
	log.Info("fetching comment context from LDAP")

	searchRequest := ldap.NewSearchRequest(
		l.userEntryDN(userID),
		ldap.ScopeBaseObject, ldap.NeverDerefAliases, 0, 0, false,
		l.userSearchFilter,
		l.attributes.names(),
		nil,
	)

	conn, err := l.getConn()
	if err != nil {
		log.WithError(err).Error("no usable LDAP connection")
		return structs.CommentContext{}, err
	}

	resp, err := conn.Search(searchRequest)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			log.Warn("user entry does not exist in LDAP")
			return structs.CommentContext{}, ErrNoUserFound
		}
		log.WithError(err).Error("failed to search LDAP for user data")
		return structs.CommentContext{}, err
	}
	if len(resp.Entries) == 0 {
		log.Warn("no LDAP entries found for user")
		return structs.CommentContext{}, ErrNoUserFound
	}

	entry := resp.Entries[0]
	data := make(map[string]interface{})
	if l.attributes.TrainingStartDate != "" {
		data["training_start_date"] = entry.GetAttributeValue(l.attributes.TrainingStartDate)
	}
	if l.attributes.TrainingYear != "" {
		data["training_year"] = entry.GetAttributeValue(l.attributes.TrainingYear)
	}
	if l.attributes.TeamName != "" {
		data["team_name"] = entry.GetAttributeValue(l.attributes.TeamName)
	}

	var record directoryRecord
	if err := utils.MapToStruct(data, &record); err != nil {
		log.WithError(err).Error("invalid comment context attributes in LDAP")
		return structs.CommentContext{}, fmt.Errorf("mapping LDAP attributes for %s: %w", userID, err)
	}

	log.Info("fetched comment context from LDAP")
	return structs.NewCommentContext(record.TrainingStartDate, record.TrainingYear, record.TeamName), nil
}
