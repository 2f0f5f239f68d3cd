package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// BookFileName is read from a book's input directory.
const BookFileName = "book.yaml"

// DefaultBookMaxPartCharacters bounds a book part unless book.yaml says otherwise.
const DefaultBookMaxPartCharacters = 7500

type Synthesis struct {
	Voice             string `yaml:"voice"`
	Style             string `yaml:"style"`
	ProsodyRate       int    `yaml:"prosodyRate"`
	Pitch             int    `yaml:"pitch"`
	MaxPartCharacters int    `yaml:"maxPartCharacters"`
}

type BookMetadata struct {
	Author        string `yaml:"author"`
	Title         string `yaml:"title"`
	PublishedYear int    `yaml:"publishedYear"`
	CoverImage    string `yaml:"coverImage"`
}

type BookFiles struct {
	Ignore []string `yaml:"ignore"`
}

// Book describes one book's synthesis settings and metadata.
type Book struct {
	Synthesis Synthesis    `yaml:"synthesis"`
	Metadata  BookMetadata `yaml:"metadata"`
	Files     BookFiles    `yaml:"files"`

	dir string
}

// LoadBook reads dir/book.yaml. Relative paths in it resolve against dir.
func LoadBook(fs afero.Fs, dir string) (*Book, error) {
	path := filepath.Join(dir, BookFileName)
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("could not find book config at %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	book := Book{Synthesis: Synthesis{Voice: "Jenny", MaxPartCharacters: DefaultBookMaxPartCharacters}}
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	book.dir = dir

	switch {
	case book.Metadata.Author == "":
		return nil, fmt.Errorf("error in %s: metadata.author is missing or empty", path)
	case book.Metadata.Title == "":
		return nil, fmt.Errorf("error in %s: metadata.title is missing or empty", path)
	case book.Synthesis.MaxPartCharacters <= 0:
		return nil, fmt.Errorf("error in %s: synthesis.maxPartCharacters must be positive", path)
	}

	if book.Metadata.CoverImage != "" {
		book.Metadata.CoverImage = book.resolve(book.Metadata.CoverImage)
		if ok, _ := afero.Exists(fs, book.Metadata.CoverImage); !ok {
			return nil, fmt.Errorf("error in %s: cover image %s does not exist", path, book.Metadata.CoverImage)
		}
	}
	for i, p := range book.Files.Ignore {
		book.Files.Ignore[i] = book.resolve(p)
	}
	return &book, nil
}

func (b *Book) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(b.dir, p)
}

// Ignored reports whether path, joined onto the book directory the way
// LoadBook joins ignore entries, is listed under files.ignore.
func (b *Book) Ignored(path string) bool {
	path = filepath.Clean(path)
	for _, p := range b.Files.Ignore {
		if p == path {
			return true
		}
	}
	return false
}
