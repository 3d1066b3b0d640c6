package extractor

import (
	"errors"
	"testing"

	"github.com/LJTian/FilingPulse/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedScorer float64

func (f fixedScorer) ScoreText(string) float64 { return float64(f) }

const filingHTML = `<html><body>
<p>UNITED STATES SECURITIES AND EXCHANGE COMMISSION</p>
<p>FORM 10-Q</p>
<p>For the quarterly period ended June&#160;30, 2019</p>
<p>Revenue increased significantly.</p>
</body></html>`

func TestFindQuarterDate(t *testing.T) {
	date, found, err := FindQuarterDate("for the quarterly period ended June 30, 2019")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2019-06-30", date)

	date, found, err = FindQuarterDate("FOR THE QUARTERLY PERIOD ENDED\nSeptember 30, 2018.")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2018-09-30", date)

	_, found, err = FindQuarterDate("annual report for fiscal 2019")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindQuarterDateMalformed(t *testing.T) {
	cases := []string{
		"for the quarterly period ended",
		"for the quarterly period ended Juneteenth 30, 2019",
		"for the quarterly period ended June thirty, 2019",
		"for the quarterly period ended June 30, 19",
		"for the quarterly period ended February 30, 2019",
	}
	for _, c := range cases {
		_, found, err := FindQuarterDate(c)
		if !found {
			t.Fatalf("%q: marker should be found", c)
		}
		var dpe *DateParseError
		if !errors.As(err, &dpe) {
			t.Fatalf("%q: expected *DateParseError, got %v", c, err)
		}
	}
}

func TestParseQuarterDateAllMonths(t *testing.T) {
	months := []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	want := []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}
	for i, m := range months {
		got, err := ParseQuarterDate(m + " 1, 2020")
		require.NoError(t, err, m)
		assert.Equal(t, "2020-"+want[i]+"-01", got)
	}
}

func TestFilingExtractor(t *testing.T) {
	ext := NewFilingExtractor(fixedScorer(0.42))

	rec, err := ext.Extract("https://sec.example/q2.htm", []byte(filingHTML))
	require.NoError(t, err)
	assert.Equal(t, "2019-06-30", rec.Key())
	assert.Contains(t, rec.Text(), "Revenue increased significantly.")

	done, err := ext.Complete(rec, "revenue increased significantly.")
	require.NoError(t, err)
	assert.Equal(t, []string{"2019-06-30", "0.4200"}, done.Row())
	// 原记录不被修改
	assert.Equal(t, 0.0, rec.(*record.FilingRecord).SentimentScore)
}

func TestFilingExtractorErrors(t *testing.T) {
	ext := NewFilingExtractor(fixedScorer(0))

	_, err := ext.Extract("u1", []byte(`<html><body><div>no paragraphs</div></body></html>`))
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "p", ee.Element)

	_, err = ext.Extract("u2", []byte(`<p>quarterly results were strong</p>`))
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, QuarterMarker, ee.Element)

	_, err = ext.Extract("u3", []byte(`<p>For the quarterly period ended soon</p>`))
	var dpe *DateParseError
	require.ErrorAs(t, err, &dpe)
	assert.Equal(t, "u3", dpe.URL)
}

func TestFilingExtractorSkipsUnparsableMarkerWhenLaterOneParses(t *testing.T) {
	ext := NewFilingExtractor(fixedScorer(0))
	html := `<p>For the quarterly period ended</p><p>For the quarterly period ended March 31, 2017</p>`

	rec, err := ext.Extract("u", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, "2017-03-31", rec.Key())
}

func TestFilingExtractorFirstParsableMarkerWins(t *testing.T) {
	ext := NewFilingExtractor(fixedScorer(0))
	html := `<p>For the quarterly period ended June 30, 2019</p><p>For the quarterly period ended March 31, 2019</p>`

	rec, err := ext.Extract("u", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, "2019-06-30", rec.Key())
}

func TestArticleExtractor(t *testing.T) {
	html := `<html><head>
<title>Tesla beats estimates</title>
<meta name="author" content="Jane Doe">
</head><body>
<h1>ignored heading</h1>
<time datetime="2019-10-23T16:05:00-04:00">Oct 23</time>
<p>Tesla   reported
 a profit.</p>
<p>Shares rose.</p>
</body></html>`

	rec, err := NewArticleExtractor().Extract("https://news.example/tsla", []byte(html))
	require.NoError(t, err)

	a := rec.(*record.ArticleRecord)
	assert.Equal(t, "https://news.example/tsla", a.Key())
	assert.Equal(t, "Tesla beats estimates", a.Title)
	assert.Equal(t, "Jane Doe", a.Author)
	assert.Equal(t, "2019-10-23", a.PublishedDate)
	assert.Equal(t, "16:05:00", a.PublishedTime)
	assert.Equal(t, "Tesla reported a profit. Shares rose.", a.BodyText)
}

func TestArticleExtractorFallbacksAndErrors(t *testing.T) {
	html := `<body><h1>Headline</h1><a rel="author" href="/a">John Roe</a>
<meta property="article:published_time" content="2020-02-03"><p>Body.</p></body>`
	rec, err := NewArticleExtractor().Extract("u", []byte(html))
	require.NoError(t, err)
	a := rec.(*record.ArticleRecord)
	assert.Equal(t, "Headline", a.Title)
	assert.Equal(t, "John Roe", a.Author)
	assert.Equal(t, "2020-02-03", a.PublishedDate)
	assert.Equal(t, "", a.PublishedTime)

	var ee *ExtractionError
	_, err = NewArticleExtractor().Extract("u", []byte(`<body><p>text</p></body>`))
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "title", ee.Element)

	_, err = NewArticleExtractor().Extract("u", []byte(`<title>t</title><div>x</div>`))
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "p", ee.Element)
}

func TestSplitPublished(t *testing.T) {
	d, c := SplitPublished("yesterday afternoon")
	assert.Equal(t, "yesterday afternoon", d)
	assert.Equal(t, "", c)

	d, c = SplitPublished("2021-07-04 09:30:00")
	assert.Equal(t, "2021-07-04", d)
	assert.Equal(t, "09:30:00", c)
}

func TestNewSelectsVariant(t *testing.T) {
	ext, err := New(record.VariantFilings, fixedScorer(0))
	require.NoError(t, err)
	assert.Equal(t, record.VariantFilings, ext.Name())

	ext, err = New(record.VariantArticles, nil)
	require.NoError(t, err)
	assert.Equal(t, record.ArticleHeader(), ext.Header())

	_, err = New(record.VariantFilings, nil)
	assert.Error(t, err)
	_, err = New("tweets", nil)
	assert.Error(t, err)
}
