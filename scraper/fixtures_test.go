package scraper

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/jarcoal/httpmock"
)

const testBase = "https://tululu.test"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBase
	cfg.DestFolder = t.TempDir()
	return cfg
}

// newTestScraper builds a scraper whose collector talks to a mock transport.
func newTestScraper(t *testing.T, cfg *config.Config) (*Scraper, *httpmock.MockTransport) {
	t.Helper()
	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	transport := httpmock.NewMockTransport()
	s.fetcher.WithTransport(transport)
	return s, transport
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(http.StatusOK, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

func textResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(http.StatusOK, body)
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

func imageResponder(data []byte) httpmock.Responder {
	resp := httpmock.NewBytesResponse(http.StatusOK, data)
	resp.Header.Set("Content-Type", "image/jpeg")
	return httpmock.ResponderFromResponse(resp)
}

func redirectResponder(location string) httpmock.Responder {
	return httpmock.NewStringResponder(http.StatusFound, "").
		HeaderSet(http.Header{"Location": {location}})
}

// buildListingPage renders a category page linking to ids. lastPage > 1
// adds pagination controls ending with lastPage.
func buildListingPage(ids []int, lastPage int) string {
	var b strings.Builder
	b.WriteString("<html><body><div id=\"content\">")
	for _, id := range ids {
		fmt.Fprintf(&b, "<table class=\"d_book\"><tr><td><div class=\"bookimage\">")
		fmt.Fprintf(&b, "<a href=\"/b%d/\" title=\"Book %d\"><img src=\"/shots/%d.jpg\" alt=\"\"></a>", id, id, id)
		b.WriteString("</div></td></tr></table>")
	}
	if lastPage > 1 {
		b.WriteString("<p class=\"center\">")
		for p := 1; p <= lastPage; p++ {
			fmt.Fprintf(&b, "<a class=\"npage\" href=\"/l55/%d/\">%d</a>", p, p)
		}
		b.WriteString("</p>")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func buildDetailPage(title, author, imageSrc string, comments, genres []string) string {
	var b strings.Builder
	b.WriteString("<html><body><div id=\"content\">")
	fmt.Fprintf(&b, "<h1>%s &nbsp; :: &nbsp; <a href=\"/a1/\">%s</a></h1>", title, author)
	fmt.Fprintf(&b, "<div class=\"bookimage\"><a href=\"#\"><img src=\"%s\" alt=\"\"></a></div>", imageSrc)
	for _, c := range comments {
		fmt.Fprintf(&b, "<div class=\"texts\"><b>reader</b><br><span class=\"black\">%s</span></div>", c)
	}
	if len(genres) > 0 {
		b.WriteString("<span class=\"d_book\"><b>Жанр книги:</b> ")
		for _, g := range genres {
			fmt.Fprintf(&b, "<a href=\"/l55/\" title=\"%s\">%s</a> ", g, g)
		}
		b.WriteString("</span>")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

// registerBook wires the text, detail and cover endpoints of a present book.
func registerBook(transport *httpmock.MockTransport, id int, title, author string) {
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/txt.php", fmt.Sprintf("id=%d", id),
		textResponder(fmt.Sprintf("text of book %d", id)))
	transport.RegisterResponder(http.MethodGet, fmt.Sprintf("%s/b%d/", testBase, id),
		htmlResponder(buildDetailPage(title, author, fmt.Sprintf("/shots/%d.jpg", id),
			[]string{"Отличная книга"}, []string{"Научная фантастика"})))
	transport.RegisterResponder(http.MethodGet, fmt.Sprintf("%s/shots/%d.jpg", testBase, id),
		imageResponder([]byte{0xff, 0xd8, 0xff, byte(id)}))
}

func registerAbsentBook(transport *httpmock.MockTransport, id int) {
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/txt.php", fmt.Sprintf("id=%d", id),
		redirectResponder(testBase+"/"))
}
