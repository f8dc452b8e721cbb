package tidy

import "strings"

// Category is the semantic type of a file.
type Category string

const (
	CategoryDocument     Category = "document"
	CategoryImage        Category = "image"
	CategoryVideo        Category = "video"
	CategoryAudio        Category = "audio"
	CategoryArchive      Category = "archive"
	CategoryCode         Category = "code"
	CategorySpreadsheet  Category = "spreadsheet"
	CategoryPresentation Category = "presentation"
	CategoryPDF          Category = "pdf"
	CategoryOther        Category = "other"
)

var extensionCategories = map[string]Category{}

func init() {
	table := map[Category][]string{
		CategoryDocument:     {"doc", "docx", "txt", "rtf", "odt", "md"},
		CategoryPDF:          {"pdf"},
		CategorySpreadsheet:  {"xls", "xlsx", "csv", "ods"},
		CategoryPresentation: {"ppt", "pptx", "odp"},
		CategoryImage:        {"jpg", "jpeg", "png", "gif", "bmp", "webp", "svg", "ico"},
		CategoryVideo:        {"mp4", "avi", "mov", "wmv", "mkv", "flv", "webm"},
		CategoryAudio:        {"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a"},
		CategoryArchive:      {"zip", "rar", "7z", "tar", "gz", "bz2"},
		CategoryCode: {"js", "ts", "jsx", "tsx", "py", "java", "c", "cpp", "h", "rs", "go", "rb",
			"php", "html", "css", "scss", "json", "xml", "yaml", "yml"},
	}
	for cat, exts := range table {
		for _, ext := range exts {
			extensionCategories[ext] = cat
		}
	}
}

// categoryFolders maps each category to the folder name used by the byType rule.
var categoryFolders = map[Category]string{
	CategoryDocument:     "Documents",
	CategoryImage:        "Images",
	CategoryVideo:        "Videos",
	CategoryAudio:        "Audio",
	CategoryArchive:      "Archives",
	CategoryCode:         "Code",
	CategorySpreadsheet:  "Spreadsheets",
	CategoryPresentation: "Presentations",
	CategoryPDF:          "PDFs",
	CategoryOther:        "Other",
}

// Extension returns the lowercase extension of a file name without the dot.
// A leading dot does not start an extension, so ".bashrc" has none while
// ".config.json" has "json". A trailing dot yields no extension.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Classify maps a file name to its category. It always returns a category,
// falling back to CategoryOther.
func Classify(name string) Category {
	if cat, ok := extensionCategories[Extension(name)]; ok {
		return cat
	}
	return CategoryOther
}

// FolderName returns the plural display name used as the byType destination.
func (c Category) FolderName() string {
	if name, ok := categoryFolders[c]; ok {
		return name
	}
	return categoryFolders[CategoryOther]
}

// categoryOf returns the node's category, classifying by name when the
// provider left it empty.
func categoryOf(n *FileNode) Category {
	if n.Category != "" {
		return n.Category
	}
	return Classify(n.Name)
}
