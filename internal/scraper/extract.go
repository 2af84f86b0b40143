package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/efterranova/jobson/internal/records"
)

// Ordered fallback selectors per field. The first selector that yields a
// non-empty text wins; a total miss leaves the field empty, never fails
// the card.
var (
	jobCardSelectors = []string{
		".job-card-container, .jobs-search-results__list-item, .jobs-search-results-list__list-item",
	}
	jobTitleSelectors = []string{
		".job-card-list__title",
		".base-search-card__title",
		".artdeco-entity-lockup__title",
		"h3",
		"h4",
	}
	jobCompanySelectors = []string{
		".job-card-container__primary-description",
		".job-card-container__company-name",
		".base-search-card__subtitle",
		".artdeco-entity-lockup__subtitle",
	}

	feedCardSelectors = []string{
		".feed-shared-update-v2, .search-content-entity-lockup, .search-results-container [data-urn]",
	}
	feedAuthorSelectors = []string{
		".update-components-actor__name",
		".feed-shared-actor__name",
		".app-aware-link",
	}
	feedContentSelectors = []string{
		".feed-shared-update-v2__description",
		".update-components-text",
		".feed-shared-text",
	}
)

// detailPaneSelector matches the job detail panel that opens when a card
// is clicked.
const detailPaneSelector = ".jobs-search__job-details, .jobs-description-content, .jobs-details__main-content"

// summaryLen caps the stored summary; longer content is truncated with an
// ellipsis.
const summaryLen = 260

var jobViewIDPattern = regexp.MustCompile(`/jobs/view/(\d+)`)

// parseCard parses one rendered list item's outer HTML into its root
// selection.
func parseCard(html string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return doc.Find("body").Children().First(), nil
}

// firstText tries each candidate selector in order and returns the first
// non-empty trimmed text found, or "" when every probe misses.
func firstText(card *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(card.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// jobLink resolves the card's detail-page URL, making relative hrefs
// absolute against the base URL.
func jobLink(card *goquery.Selection, baseURL string) string {
	href, ok := card.Find("a[href*='/jobs/view/']").First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return baseURL + href
}

// jobIdentity derives a job card's identity: the native data-job-id
// attribute, then the entity urn's last segment, then the numeric id
// pattern-matched from the detail link. Empty means the card has no
// derivable identity and is skipped.
func jobIdentity(card *goquery.Selection, link string) string {
	raw, ok := card.Attr("data-job-id")
	if !ok || raw == "" {
		raw, _ = card.Attr("data-entity-urn")
	}
	if raw != "" {
		if idx := strings.LastIndex(raw, ":"); idx >= 0 {
			return raw[idx+1:]
		}
		return raw
	}

	if link == "" {
		return ""
	}
	match := jobViewIDPattern.FindStringSubmatch(link)
	if match == nil {
		return ""
	}
	return match[1]
}

// feedIdentity derives a feed post's identity from its urn attributes.
func feedIdentity(card *goquery.Selection) string {
	id, ok := card.Attr("data-urn")
	if !ok || id == "" {
		id, _ = card.Attr("data-id")
	}
	return id
}

// feedLink resolves a post's permalink, deriving one from the urn when
// the card carries no /feed/update/ anchor.
func feedLink(card *goquery.Selection, postID, baseURL string) string {
	href, ok := card.Find("a[href*='/feed/update/']").First().Attr("href")
	if ok && href != "" {
		if strings.HasPrefix(href, "http") {
			return href
		}
		return baseURL + href
	}

	if strings.Contains(postID, "update") {
		cleaned := postID
		if idx := strings.LastIndex(postID, ":"); idx >= 0 {
			cleaned = postID[idx+1:]
		}
		return baseURL + "/feed/update/" + cleaned + "/"
	}
	return ""
}

// summarize truncates detail text into the stored summary form. The cut
// counts characters, not bytes, so multibyte text stays valid UTF-8.
func summarize(content string) string {
	if runes := []rune(content); len(runes) > summaryLen {
		return string(runes[:summaryLen]) + "..."
	}
	return content
}

// Seniority levels, highest first. Priority order is deliberate: a title
// matching both a director marker and a senior marker (e.g. "Senior
// Director") classifies as Lead/Director.
var seniorityLevels = []struct {
	level   string
	markers []string
}{
	{"Lead/Director", []string{"director", "vp", "vice president", "head of", "principal"}},
	{"Senior", []string{"senior", "sr", "lead", "staff"}},
	{"Junior", []string{"junior", "jr", "entry", "trainee", "intern", "pasante"}},
}

// classifySeniority estimates the seniority of a posting from its title
// and description text.
func classifySeniority(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, candidate := range seniorityLevels {
		for _, marker := range candidate.markers {
			if strings.Contains(text, marker) {
				return candidate.level
			}
		}
	}
	return "Mid"
}

// detectApplyType classifies how a job is applied to from the detail
// panel's HTML.
func detectApplyType(htmlFragment string) string {
	if strings.Contains(htmlFragment, "Easy Apply") || strings.Contains(htmlFragment, "Solicitud sencilla") {
		return "Easy Apply"
	}
	if strings.Contains(htmlFragment, "Apply") || strings.Contains(htmlFragment, "Solicitar") {
		return "External Apply"
	}
	return "Unknown"
}

// buildJobRecord assembles a job RawRecord from a card plus its detail
// pane text/HTML.
func buildJobRecord(card *goquery.Selection, jobID, link, baseURL, detailText, detailHTML string) records.Raw {
	title := firstText(card, jobTitleSelectors)
	company := firstText(card, jobCompanySelectors)

	fullURL := link
	if fullURL == "" {
		fullURL = baseURL + "/jobs/view/" + jobID + "/"
	}

	if title == "" {
		title = "Sin título"
	}
	if company == "" {
		company = "Sin empresa"
	}

	return records.Raw{
		SourceType: records.SourceJobs,
		SourceID:   jobID,
		Title:      title,
		Company:    company,
		Author:     "",
		Summary:    summarize(detailText),
		Content:    detailText,
		Seniority:  classifySeniority(title, detailText),
		ApplyType:  detectApplyType(detailHTML),
		URL:        fullURL,
		ScrapedAt:  records.NowISO(),
	}
}

// buildFeedRecord assembles a feed RawRecord from a post card.
func buildFeedRecord(card *goquery.Selection, postID, baseURL, pageURL string) records.Raw {
	author := firstText(card, feedAuthorSelectors)
	content := firstText(card, feedContentSelectors)

	link := feedLink(card, postID, baseURL)
	if link == "" {
		link = pageURL
	}
	if author == "" {
		author = "Autor desconocido"
	}

	return records.Raw{
		SourceType: records.SourceFeed,
		SourceID:   postID,
		Title:      "",
		Company:    "",
		Author:     author,
		Summary:    summarize(content),
		Content:    content,
		Seniority:  classifySeniority("", content),
		ApplyType:  "N/A",
		URL:        link,
		ScrapedAt:  records.NowISO(),
	}
}
