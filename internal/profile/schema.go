// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bcem/emailer/internal/models"
)

// Provider names reported by Profile.Provider.
const (
	ProviderMicrosoft = "microsoft"
	ProviderGoogle    = "google"
)

// Profile is one of the known "who am I" payload shapes. The set is closed:
// only MicrosoftProfile and GoogleProfile implement it.
type Profile interface {
	// Provider names the identity provider the payload came from.
	Provider() string
	// Identity normalizes the payload to a display name and address.
	Identity() models.Identity

	sealed()
}

// MicrosoftProfile is the Outlook REST /me payload.
type MicrosoftProfile struct {
	ODataContext string `json:"@odata.context"`
	ODataID      string `json:"@odata.id"`
	ID           string `json:"Id"`
	EmailAddress string `json:"EmailAddress"`
	DisplayName  string `json:"DisplayName"`
	Alias        string `json:"Alias"`
	MailboxGUID  string `json:"MailboxGuid"`
}

func (MicrosoftProfile) Provider() string { return ProviderMicrosoft }

func (p MicrosoftProfile) Identity() models.Identity {
	return models.Identity{Name: p.DisplayName, Email: p.EmailAddress}
}

func (MicrosoftProfile) sealed() {}

// GoogleProfile is the Google oauth2/v2/userinfo payload.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func (GoogleProfile) Provider() string { return ProviderGoogle }

// Identity uses the given name, not the full name, as the display name.
func (p GoogleProfile) Identity() models.Identity {
	return models.Identity{Name: p.GivenName, Email: p.Email}
}

func (GoogleProfile) sealed() {}

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
)

func (k fieldKind) matches(r gjson.Result) bool {
	switch k {
	case kindBool:
		return r.Type == gjson.True || r.Type == gjson.False
	default:
		return r.Type == gjson.String
	}
}

func (k fieldKind) String() string {
	if k == kindBool {
		return "boolean"
	}
	return "string"
}

// variant describes one member of the union: the exact top-level keys it
// requires and how to build it once they are all present.
type variant struct {
	name   string
	fields map[string]fieldKind
	build  func(fields map[string]gjson.Result) Profile
}

// variants are attempted in this order; the first full match wins.
var variants = []variant{
	{
		name: "Microsoft",
		fields: map[string]fieldKind{
			"@odata.context": kindString,
			"@odata.id":      kindString,
			"Id":             kindString,
			"EmailAddress":   kindString,
			"DisplayName":    kindString,
			"Alias":          kindString,
			"MailboxGuid":    kindString,
		},
		build: func(f map[string]gjson.Result) Profile {
			return MicrosoftProfile{
				ODataContext: f["@odata.context"].String(),
				ODataID:      f["@odata.id"].String(),
				ID:           f["Id"].String(),
				EmailAddress: f["EmailAddress"].String(),
				DisplayName:  f["DisplayName"].String(),
				Alias:        f["Alias"].String(),
				MailboxGUID:  f["MailboxGuid"].String(),
			}
		},
	},
	{
		name: "Google",
		fields: map[string]fieldKind{
			"id":             kindString,
			"email":          kindString,
			"verified_email": kindBool,
			"name":           kindString,
			"given_name":     kindString,
			"picture":        kindString,
			"locale":         kindString,
		},
		build: func(f map[string]gjson.Result) Profile {
			return GoogleProfile{
				ID:            f["id"].String(),
				Email:         f["email"].String(),
				VerifiedEmail: f["verified_email"].Bool(),
				Name:          f["name"].String(),
				GivenName:     f["given_name"].String(),
				Picture:       f["picture"].String(),
				Locale:        f["locale"].String(),
			}
		},
	},
}

// mismatch returns a description of why fields do not satisfy v, or "".
func (v variant) mismatch(fields map[string]gjson.Result) string {
	keys := make([]string, 0, len(v.fields))
	for key := range v.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		kind := v.fields[key]
		got, ok := fields[key]
		if !ok {
			return fmt.Sprintf("missing field %q", key)
		}
		if !kind.matches(got) {
			return fmt.Sprintf("field %q is not a %s", key, kind)
		}
	}
	return ""
}

// Parse decodes body as one of the known profile shapes. Unknown extra
// fields are ignored; every field of the chosen shape must be present with
// the right JSON type.
func Parse(body []byte) (Profile, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("profile response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.New("profile response is not a JSON object")
	}

	fields := make(map[string]gjson.Result)
	root.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})

	reasons := make([]string, 0, len(variants))
	for _, v := range variants {
		if reason := v.mismatch(fields); reason != "" {
			reasons = append(reasons, v.name+": "+reason)
			continue
		}
		return v.build(fields), nil
	}

	return nil, fmt.Errorf("data did not match any known profile schema (%s)", strings.Join(reasons, "; "))
}
