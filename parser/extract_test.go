package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailPage = `<html><body>
<table><tr><td class="ow_px_td">
<h1>  Alice :: Lewis Carroll  </h1>
<div class="bookimage"><a href="/b9/"><img src="/shots/9.jpg" alt="cover"></a></div>
<span class="d_book">Жанр книги: <a href="/l55/">Fantasy</a>, <a href="/l12/">Classics</a></span>
<div class="texts"><b>reader</b><span class="black">First!</span></div>
<div class="texts"><b>other</b><span class="black">Second.</span></div>
</td></tr></table>
</body></html>`

const listingPage = `<html><body>
<table class="d_book"><tr><td><div class="bookimage"><a href="/b101/"><img src="/shots/101.jpg"></a></div></td></tr></table>
<table class="d_book"><tr><td><div class="bookimage"><a href="b102/"><img src="/shots/102.jpg"></a></div></td></tr></table>
<table class="d_book"><tr><td><div class="bookimage"><a>no href</a></div></td></tr></table>
<p class="center">
<span class="npage_select"><b>1</b></span>
<a class="npage" href="/l55/2/">2</a>
<a class="npage" href="/l55/3/">3</a>
<a class="npage" href="/l55/187/">187</a>
</p>
</body></html>`

func TestExtractBook(t *testing.T) {
	doc, err := NewDocument([]byte(detailPage), "https://tululu.test/b9/")
	require.NoError(t, err)

	book, err := ExtractBook(doc, DefaultSelectors())
	require.NoError(t, err)

	assert.Equal(t, "Alice", book.Title)
	assert.Equal(t, "Lewis Carroll", book.Author)
	assert.Equal(t, "https://tululu.test/shots/9.jpg", book.ImageURL)
	assert.Equal(t, []string{"First!", "Second."}, book.Comments)
	assert.Equal(t, []string{"Fantasy", "Classics"}, book.Genres)
}

func TestExtractBookOptionalSectionsEmpty(t *testing.T) {
	page := `<html><body><h1>Lonely :: Nobody</h1><div class="bookimage"><img src="nopic.gif"></div></body></html>`
	doc, err := NewDocument([]byte(page), "https://tululu.test/b4/")
	require.NoError(t, err)

	book, err := ExtractBook(doc, DefaultSelectors())
	require.NoError(t, err)

	assert.NotNil(t, book.Comments)
	assert.Empty(t, book.Comments)
	assert.NotNil(t, book.Genres)
	assert.Empty(t, book.Genres)
	assert.Equal(t, "https://tululu.test/b4/nopic.gif", book.ImageURL)
}

func TestExtractBookMissingMandatory(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		wantErr error
	}{
		{
			name:    "no heading",
			page:    `<html><body><div class="bookimage"><img src="/a.jpg"></div></body></html>`,
			wantErr: ErrMissingHeading,
		},
		{
			name:    "no thumbnail",
			page:    `<html><body><h1>Title :: Author</h1><div class="bookimage"><img alt="x"></div></body></html>`,
			wantErr: ErrMissingThumbnail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument([]byte(tt.page), "https://tululu.test/b1/")
			require.NoError(t, err)

			_, err = ExtractBook(doc, DefaultSelectors())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocateBooks(t *testing.T) {
	doc, err := NewDocument([]byte(listingPage), "https://tululu.test/l55/1")
	require.NoError(t, err)

	hrefs := LocateBooks(doc, DefaultSelectors())
	require.Equal(t, []string{"/b101/", "b102/"}, hrefs)

	abs, err := doc.Absolute(hrefs[1])
	require.NoError(t, err)
	assert.Equal(t, "https://tululu.test/l55/b102/", abs)
}

func TestLastPage(t *testing.T) {
	doc, err := NewDocument([]byte(listingPage), "https://tululu.test/l55/")
	require.NoError(t, err)

	last, err := LastPage(doc, DefaultSelectors())
	require.NoError(t, err)
	assert.Equal(t, 187, last)

	single, err := NewDocument([]byte(`<html><body><div class="bookimage"><a href="/b1/">x</a></div></body></html>`), "https://tululu.test/l55/")
	require.NoError(t, err)
	last, err = LastPage(single, DefaultSelectors())
	require.NoError(t, err)
	assert.Equal(t, 1, last)

	broken, err := NewDocument([]byte(`<a class="npage">next</a>`), "https://tululu.test/l55/")
	require.NoError(t, err)
	_, err = LastPage(broken, DefaultSelectors())
	assert.Error(t, err)
}

func TestExtractBookNestedCommentMarkup(t *testing.T) {
	page := `<html><body><h1>Nested :: Author</h1>
<div class="bookimage"><img src="/shots/5.jpg"></div>
<div class="texts"><b>reader</b><span class="black">Great <span>really</span> book</span></div>
<div class="texts"><b>quiet reader</b></div>
<div class="texts"><span class="black">Short</span><span>signature</span></div>
</body></html>`
	doc, err := NewDocument([]byte(page), "https://tululu.test/b5/")
	require.NoError(t, err)

	book, err := ExtractBook(doc, DefaultSelectors())
	require.NoError(t, err)
	assert.Equal(t, []string{"Great really book", "Short"}, book.Comments)
}

func TestExtractBookGenresFromFirstContainer(t *testing.T) {
	page := `<html><body><h1>Genres :: Author</h1>
<div class="bookimage"><img src="/shots/6.jpg"></div>
<span class="d_book"><b>Жанр книги:</b> <a href="/l55/">Научная фантастика</a>, <a href="/l12/">Прочее</a></span>
<span class="d_book"><a href="/a9/">Related author</a></span>
</body></html>`
	doc, err := NewDocument([]byte(page), "https://tululu.test/b6/")
	require.NoError(t, err)

	book, err := ExtractBook(doc, DefaultSelectors())
	require.NoError(t, err)
	assert.Equal(t, []string{"Научная фантастика", "Прочее"}, book.Genres)
}
