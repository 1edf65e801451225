package loader

import (
	"fmt"
	"html"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <link rel="stylesheet" href="assets/css/styles.css">
</head>
<body>
    <div data-include="header"></div>

    <main id="main-content">
%s
    </main>

    <div data-include="footer"></div>
    <script src="assets/js/header-inline.js"></script>
    <script src="assets/js/footer-inline.js"></script>
</body>
</html>
`

var builtinPages = map[string]struct{ title, body string }{
	"index.html": {
		title: "People First Urgent Care | Walk-In Urgent & Primary Care",
		body: `        <section class="hero">
            <div class="container">
                <h1>Walk-In Care When You Need It</h1>
                <p>People First Urgent Care treats non-life-threatening illnesses and injuries for the whole family, with no appointment needed.</p>
                <a href="contact.html" class="btn btn-primary">Find a Location</a>
            </div>
        </section>
        <section class="services">
            <div class="container">
                <h2>Our Services</h2>
                <p>Lab testing, X-ray and imaging, vaccinations, physicals and primary care under one roof.</p>
            </div>
        </section>`,
	},
	"about.html": {
		title: "About Us | People First Urgent Care",
		body: `        <section class="page-hero">
            <div class="container">
                <h1>About Us</h1>
                <p>Our experienced medical team is dedicated to affordable, high-quality care for every patient who walks through our doors.</p>
            </div>
        </section>
        <section class="mission">
            <div class="container">
                <h2>Our Mission</h2>
                <p>Put people first: short waits, clear answers and follow-up care you can count on.</p>
            </div>
        </section>`,
	},
	"contact.html": {
		title: "Contact Us | People First Urgent Care",
		body: `        <section class="page-hero">
            <div class="container">
                <h1>Contact Us</h1>
                <p>Call any of our clinics or stop by during opening hours. Walk-ins are always welcome.</p>
            </div>
        </section>
        <section class="contact-info">
            <div class="container">
                <h2>Opening Hours</h2>
                <p>Monday to Sunday, 8:00 AM to 8:00 PM.</p>
            </div>
        </section>`,
	},
}

// DefaultBuiltin returns the hand-authored pages used when a known page
// cannot be fetched.
func DefaultBuiltin() map[string]string {
	out := make(map[string]string, len(builtinPages))
	for id, p := range builtinPages {
		out[id] = fmt.Sprintf(pageShell, p.title, p.body)
	}
	return out
}

// Synthetic generates placeholder content for a page id so the editor never
// opens blank.
func Synthetic(pageID, siteName string) string {
	name := strings.TrimSuffix(path.Base(pageID), path.Ext(pageID))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	title := cases.Title(language.English).String(strings.TrimSpace(name))
	if title == "" {
		title = "Untitled Page"
	}
	fullTitle := title
	if siteName != "" {
		fullTitle = title + " | " + siteName
	}

	body := fmt.Sprintf(`        <section class="page-hero">
            <div class="container">
                <h1>%s</h1>
                <p>This page could not be loaded. Replace this placeholder text to start writing the %s page.</p>
            </div>
        </section>`, html.EscapeString(title), html.EscapeString(title))
	return fmt.Sprintf(pageShell, html.EscapeString(fullTitle), body)
}
