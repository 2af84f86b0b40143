package scraper

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efterranova/jobson/internal/records"
)

const base = "https://www.linkedin.com"

const jobCardHTML = `<li class="job-card-container" data-job-id="4012345678">
	<a href="/jobs/view/4012345678/?refId=abc">link</a>
	<span class="job-card-list__title"> Senior Backend Engineer </span>
	<span class="job-card-container__primary-description"> Acme Corp </span>
</li>`

func TestFirstText_FallbackOrder(t *testing.T) {
	card, err := parseCard(`<div>
		<h4>Fallback title</h4>
		<span class="base-search-card__title">Preferred title</span>
	</div>`)
	require.NoError(t, err)

	// base-search-card__title outranks h4 in the fallback list.
	assert.Equal(t, "Preferred title", firstText(card, jobTitleSelectors))
}

func TestFirstText_AllMiss(t *testing.T) {
	card, err := parseCard(`<div><p>unrelated</p></div>`)
	require.NoError(t, err)

	assert.Equal(t, "", firstText(card, jobTitleSelectors))
}

func TestJobIdentity_NativeAttribute(t *testing.T) {
	card, err := parseCard(jobCardHTML)
	require.NoError(t, err)

	assert.Equal(t, "4012345678", jobIdentity(card, jobLink(card, base)))
}

func TestJobIdentity_EntityURN(t *testing.T) {
	card, err := parseCard(`<li data-entity-urn="urn:li:jobPosting:987654"></li>`)
	require.NoError(t, err)

	assert.Equal(t, "987654", jobIdentity(card, ""))
}

func TestJobIdentity_FromDetailURL(t *testing.T) {
	card, err := parseCard(`<li><a href="/jobs/view/555000111/?tracking=x">job</a></li>`)
	require.NoError(t, err)

	assert.Equal(t, "555000111", jobIdentity(card, jobLink(card, base)))
}

func TestJobIdentity_Underivable(t *testing.T) {
	card, err := parseCard(`<li><a href="/company/acme/">not a job link</a></li>`)
	require.NoError(t, err)

	assert.Equal(t, "", jobIdentity(card, jobLink(card, base)))
}

func TestJobLink_RelativeHrefMadeAbsolute(t *testing.T) {
	card, err := parseCard(jobCardHTML)
	require.NoError(t, err)

	assert.Equal(t, base+"/jobs/view/4012345678/?refId=abc", jobLink(card, base))
}

func TestBuildJobRecord(t *testing.T) {
	card, err := parseCard(jobCardHTML)
	require.NoError(t, err)

	detail := "We need a senior engineer to build data pipelines."
	rec := buildJobRecord(card, "4012345678", jobLink(card, base), base, detail,
		`<button>Easy Apply</button>`)

	assert.Equal(t, records.SourceJobs, rec.SourceType)
	assert.Equal(t, "4012345678", rec.SourceID)
	assert.Equal(t, "Senior Backend Engineer", rec.Title)
	assert.Equal(t, "Acme Corp", rec.Company)
	assert.Equal(t, detail, rec.Content)
	assert.Equal(t, detail, rec.Summary)
	assert.Equal(t, "Senior", rec.Seniority)
	assert.Equal(t, "Easy Apply", rec.ApplyType)
	assert.Equal(t, base+"/jobs/view/4012345678/?refId=abc", rec.URL)
	assert.NotEmpty(t, rec.ScrapedAt)
}

func TestBuildJobRecord_Placeholders(t *testing.T) {
	card, err := parseCard(`<li data-job-id="42"></li>`)
	require.NoError(t, err)

	rec := buildJobRecord(card, "42", "", base, "", "")

	assert.Equal(t, "Sin título", rec.Title)
	assert.Equal(t, "Sin empresa", rec.Company)
	assert.Equal(t, base+"/jobs/view/42/", rec.URL)
	assert.Equal(t, "Unknown", rec.ApplyType)
	assert.Equal(t, "Mid", rec.Seniority)
}

func TestSummarize_TruncatesAt260(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}

	got := summarize(string(long))
	assert.Len(t, got, 263)
	assert.Equal(t, string(long[:260])+"...", got)

	assert.Equal(t, "short", summarize("short"))
}

func TestSummarize_TruncatesByCharacters(t *testing.T) {
	long := strings.Repeat("ú", 300)

	got := summarize(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ú", 260)+"...", got)
}

func TestFeedIdentity(t *testing.T) {
	card, err := parseCard(`<div class="feed-shared-update-v2" data-urn="urn:li:activity:7123"></div>`)
	require.NoError(t, err)
	assert.Equal(t, "urn:li:activity:7123", feedIdentity(card))

	card, err = parseCard(`<div data-id="backup-id"></div>`)
	require.NoError(t, err)
	assert.Equal(t, "backup-id", feedIdentity(card))

	card, err = parseCard(`<div class="feed-shared-update-v2"></div>`)
	require.NoError(t, err)
	assert.Equal(t, "", feedIdentity(card))
}

func TestFeedLink_DerivedFromURN(t *testing.T) {
	card, err := parseCard(`<div data-urn="urn:li:update:9999"></div>`)
	require.NoError(t, err)

	assert.Equal(t, base+"/feed/update/9999/", feedLink(card, "urn:li:update:9999", base))
}

func TestFeedLink_AnchorWins(t *testing.T) {
	card, err := parseCard(`<div><a href="/feed/update/urn:li:activity:1/">post</a></div>`)
	require.NoError(t, err)

	assert.Equal(t, base+"/feed/update/urn:li:activity:1/", feedLink(card, "urn:li:activity:1", base))
}

func TestBuildFeedRecord(t *testing.T) {
	card, err := parseCard(`<div class="feed-shared-update-v2" data-urn="urn:li:activity:55">
		<span class="update-components-actor__name">Jane Poster</span>
		<div class="update-components-text">Hiring a junior analyst, apply within.</div>
	</div>`)
	require.NoError(t, err)

	rec := buildFeedRecord(card, "urn:li:activity:55", base, "https://page.url/")

	assert.Equal(t, records.SourceFeed, rec.SourceType)
	assert.Equal(t, "urn:li:activity:55", rec.SourceID)
	assert.Equal(t, "Jane Poster", rec.Author)
	assert.Equal(t, "Hiring a junior analyst, apply within.", rec.Content)
	assert.Equal(t, "N/A", rec.ApplyType)
	assert.Equal(t, "Junior", rec.Seniority)
	// No /feed/update/ anchor and the urn has no "update" marker: fall
	// back to the page URL.
	assert.Equal(t, "https://page.url/", rec.URL)
}

func TestBuildFeedRecord_UnknownAuthor(t *testing.T) {
	card, err := parseCard(`<div data-urn="urn:li:activity:56"></div>`)
	require.NoError(t, err)

	rec := buildFeedRecord(card, "urn:li:activity:56", base, "https://page.url/")
	assert.Equal(t, "Autor desconocido", rec.Author)
}

func TestClassifySeniority(t *testing.T) {
	cases := []struct {
		title, content, want string
	}{
		{"Senior Backend Engineer", "", "Senior"},
		{"VP of Engineering", "", "Lead/Director"},
		{"Marketing Intern", "", "Junior"},
		{"", "", "Mid"},
		{"Backend Engineer", "", "Mid"},
		// Director outranks senior: priority order, not specificity.
		{"Senior Director of Data", "", "Lead/Director"},
		{"", "looking for a principal contributor", "Lead/Director"},
		{"Analyst", "entry level role", "Junior"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, classifySeniority(tc.title, tc.content),
			"title=%q content=%q", tc.title, tc.content)
	}
}

func TestDetectApplyType(t *testing.T) {
	assert.Equal(t, "Easy Apply", detectApplyType(`<button>Easy Apply</button>`))
	assert.Equal(t, "Easy Apply", detectApplyType(`<button>Solicitud sencilla</button>`))
	assert.Equal(t, "External Apply", detectApplyType(`<a>Apply on company site</a>`))
	assert.Equal(t, "External Apply", detectApplyType(`<a>Solicitar</a>`))
	assert.Equal(t, "Unknown", detectApplyType(`<div>nothing here</div>`))
}
