package ldap

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
)

const dialTimeout = 5 * time.Second

// LDAP is the directory configuration. UserDN is a format string taking the user id.
type LDAP struct {
	Server           string     `yaml:"server"`
	UserDN           string     `yaml:"userDN"`
	UserSearchFilter string     `yaml:"userSearchFilter"`
	Attributes       Attributes `yaml:"attributes"`
}

// Attributes names the directory attributes holding the comment context values.
// Empty names are not requested.
type Attributes struct {
	TrainingStartDate string `yaml:"trainingStartDate"`
	TrainingYear      string `yaml:"trainingYear"`
	TeamName          string `yaml:"teamName"`
}

func (a Attributes) names() []string {
	names := make([]string, 0, 3)
	for _, n := range []string{a.TrainingStartDate, a.TrainingYear, a.TeamName} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Enabled reports whether a directory server is configured
func (c LDAP) Enabled() bool {
	return c.Server != ""
}

//go:generate mockgen -destination=mocks/mock_ldap.go -package=mocks github.com/apprenticelog/apprenticelog/pkg/clients/ldap LDAPConnClient

// LDAPConnClient is the subset of *ldap.Conn used here
type LDAPConnClient interface {
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	IsClosing() bool
}

type LDAPConn struct {
	// mu guards conn across concurrent lookups and redials
	mu               sync.Mutex
	conn             LDAPConnClient
	dial             func() (LDAPConnClient, error)
	userDN           string
	userSearchFilter string
	attributes       Attributes
}

// InitLdap initializes a connection to the LDAP server using the provided configuration.
func InitLdap(ldapConfig LDAP) (LDAPClient, error) {
	if !ldapConfig.Enabled() {
		return nil, errors.New("LDAP server is not configured")
	}

	dial := func() (LDAPConnClient, error) {
		conn, err := ldap.DialURL(ldapConfig.Server, ldap.DialWithDialer(&net.Dialer{Timeout: dialTimeout}))
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	conn, err := dial()
	if err != nil {
		return nil, err
	}

	return newLDAPConn(ldapConfig, conn, dial), nil
}

func newLDAPConn(ldapConfig LDAP, conn LDAPConnClient, dial func() (LDAPConnClient, error)) *LDAPConn {
	return &LDAPConn{
		conn:             conn,
		dial:             dial,
		userDN:           ldapConfig.UserDN,
		userSearchFilter: ldapConfig.UserSearchFilter,
		attributes:       ldapConfig.Attributes,
	}
}

// getConn returns the underlying connection, redialing when it is closing
func (l *LDAPConn) getConn() (LDAPConnClient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil && !l.conn.IsClosing() {
		return l.conn, nil
	}
	if l.dial == nil {
		return nil, errors.New("LDAP connection is closed")
	}

	conn, err := l.dial()
	if err != nil {
		return nil, err
	}
	l.conn = conn
	return l.conn, nil
}
