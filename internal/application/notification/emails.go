package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/govscheme-portal/internal/domain"
)

// Email is a rendered HTML message ready for a Mailer.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Composer renders the portal's transactional emails. Links point at appURL.
type Composer struct {
	appURL string
	tmpl   *template.Template
}

func NewComposer(appURL string) *Composer {
	return &Composer{appURL: appURL, tmpl: templates}
}

func (c *Composer) OTP(u *domain.User, code string, ttl time.Duration) (Email, error) {
	body, err := c.render("otp", map[string]any{
		"Name":    greetingName(u),
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      u.Email,
		Subject: "Your OTP for Email Verification - Government Scheme Portal",
		HTML:    body,
	}, nil
}

func (c *Composer) Welcome(u *domain.User) (Email, error) {
	body, err := c.render("welcome", map[string]any{
		"Name":         greetingName(u),
		"DashboardURL": c.appURL + "/dashboard",
	})
	if err != nil {
		return Email{}, err
	}
	return Email{To: u.Email, Subject: "Welcome to Government Scheme Portal!", HTML: body}, nil
}

func (c *Composer) NewScheme(u *domain.User, s *domain.Scheme) (Email, error) {
	detailsURL := fmt.Sprintf("%s/schemes/%s", c.appURL, s.SchemeID)
	applyURL := detailsURL
	if s.OfficialWebsite != "" {
		applyURL = s.OfficialWebsite
	}
	ministry := s.Ministry
	if ministry == "" {
		ministry = "N/A"
	}
	body, err := c.render("scheme", map[string]any{
		"Name":       greetingName(u),
		"Scheme":     s,
		"Ministry":   ministry,
		"DetailsURL": detailsURL,
		"ApplyURL":   applyURL,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{To: u.Email, Subject: "New Scheme Alert: " + s.Name, HTML: body}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func greetingName(u *domain.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

var templates = template.Must(template.New("emails").Parse(`
{{define "otp"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Welcome {{.Name}}!</h2>
<p>Here is your OTP to verify your email:</p>
<p style="font-size: 2rem; font-weight: bold; letter-spacing: 10px; color: #1565C0;">{{.Code}}</p>
<ul>
<li>This OTP is valid for <strong>{{.Minutes}} minutes</strong> only</li>
<li>Do not share it with anyone</li>
</ul>
<p style="color: #666;">If you didn't request this, please ignore this email.</p>
</body></html>{{end}}

{{define "welcome"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Welcome aboard, {{.Name}}!</h2>
<p>Your email has been verified. You can now discover government schemes tailored for you
and receive alerts when new schemes matching your profile are added.</p>
<p><a href="{{.DashboardURL}}">Go to Dashboard</a></p>
</body></html>{{end}}

{{define "scheme"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Dear {{.Name}},</h2>
<p>A new government scheme that matches your eligibility criteria has been added to the portal.</p>
<h3>{{.Scheme.Name}}</h3>
<p>{{.Scheme.Category}} &middot; {{.Scheme.Department}}</p>
<p><strong>Ministry:</strong> {{.Ministry}}</p>
<p>{{.Scheme.ShortDescription}}</p>
{{if .Scheme.Benefits}}<p><strong>Key Benefits:</strong></p>
<ul>{{range .Scheme.Benefits}}<li>{{.}}</li>{{end}}</ul>{{end}}
<p><a href="{{.DetailsURL}}">View Full Details</a> | <a href="{{.ApplyURL}}">Apply Now</a></p>
</body></html>{{end}}
`))
