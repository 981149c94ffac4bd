package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is the subset of the Salesforce Lead record the voice agent reads.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	FirstName   string `json:"FirstName" salesforce:"FirstName"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Email       string `json:"Email" salesforce:"Email"`
	Company     string `json:"Company" salesforce:"Company"`
	Status      string `json:"Status" salesforce:"Status"`
	Rating      string `json:"Rating" salesforce:"Rating"`
	Description string `json:"Description" salesforce:"Description"`
}

var leadFields = []string{"Id", "FirstName", "LastName", "Email", "Company", "Status", "Rating", "Description"}

// FindLeadByEmail returns the most recently created Lead with email, or nil.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' ORDER BY CreatedDate DESC LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrapf(err, "sf: find lead by email %s", email)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// CreateLead inserts a Lead. LastName and Company are required by Salesforce.
func CreateLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	for _, req := range []string{"LastName", "Company"} {
		if v, _ := fields[req].(string); v == "" {
			return "", eris.Errorf("sf: lead %s is required", req)
		}
	}
	id, err := c.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// UpdateLead patches an existing Lead.
func UpdateLead(ctx context.Context, c Client, leadID string, fields map[string]any) error {
	if leadID == "" {
		return eris.New("sf: lead id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Lead", leadID, fields); err != nil {
		return eris.Wrapf(err, "sf: update lead %s", leadID)
	}
	return nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
