package extract

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type textEncoding struct {
	name    string
	decoder func() transform.Transformer
}

// textEncodings are tried in order; the first that decodes without error wins.
var textEncodings = []textEncoding{
	{name: "utf-8", decoder: func() transform.Transformer { return encoding.UTF8Validator }},
	{name: "latin-1", decoder: func() transform.Transformer { return charmap.ISO8859_1.NewDecoder() }},
	{name: "windows-1252", decoder: func() transform.Transformer { return charmap.Windows1252.NewDecoder() }},
}

// TextExtractor reads plain text files of unknown encoding.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, path string) Result {
	name := filepath.Base(path)
	res := newResult(name, MethodPlainText)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("failed to read text file")
		res.Error = err.Error()
		return res
	}
	text, enc, ok := decodeText(data)
	if !ok {
		log.Error().Str("file", name).Msg("could not decode with any encoding")
		res.Error = "could not decode text"
		return res
	}
	if res.accept(text) {
		log.Info().Str("file", name).Str("encoding", enc).Msg("read text file")
	} else {
		log.Warn().Str("file", name).Msg("empty file")
	}
	return res
}

// decodeText returns the content decoded with the first candidate encoding
// that accepts it, and that encoding's name.
func decodeText(data []byte) (string, string, bool) {
	for _, enc := range textEncodings {
		out, _, err := transform.Bytes(enc.decoder(), data)
		if err != nil {
			continue
		}
		return string(out), enc.name, true
	}
	return "", "", false
}
