// Package tags writes track metadata into finished audio files.
package tags

import (
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// Picture is an embedded cover image.
type Picture struct {
	MIMEType string
	Data     []byte
}

// Record is the metadata written to one track.
type Record struct {
	Artist      string
	Album       string
	AlbumArtist string
	Title       string
	Year        int
	Track       int
	Cover       *Picture
}

// Writer applies a Record to the file at path.
type Writer interface {
	Write(path string, rec Record) error
}

// ID3Writer writes ID3v2.4 tags, replacing any tags already present.
type ID3Writer struct{}

func NewID3Writer() *ID3Writer { return &ID3Writer{} }

func (w *ID3Writer) Write(path string, rec Record) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("open %s for tagging: %w", path, err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if rec.Title != "" {
		tag.SetTitle(rec.Title)
	}
	if rec.Artist != "" {
		tag.SetArtist(rec.Artist)
	}
	if rec.Album != "" {
		tag.SetAlbum(rec.Album)
	}
	if rec.AlbumArtist != "" {
		tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, rec.AlbumArtist)
	}
	if rec.Year > 0 {
		tag.AddTextFrame(tag.CommonID("Recording time"), id3v2.EncodingUTF8, strconv.Itoa(rec.Year))
	}
	if rec.Track > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(rec.Track))
	}
	if rec.Cover != nil && len(rec.Cover.Data) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    rec.Cover.MIMEType,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     rec.Cover.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags to %s: %w", path, err)
	}
	return nil
}
