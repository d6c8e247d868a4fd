package jobs

import "clipcraft/internal/media"

type processRequest struct {
	FileID string `json:"file_id"`
	Params any    `json:"params"`
}

type dedupeParams struct {
	Filename  string   `json:"filename"`
	Model     string   `json:"model"`
	Threshold *float64 `json:"dedupe_threshold,omitempty"`
}

type captionParams struct {
	Filename string `json:"filename"`
	FontSize int    `json:"font_size"`
}

type musicParams struct {
	Filename      string  `json:"filename"`
	MusicFileID   string  `json:"music_file_id"`
	MusicFilename string  `json:"music_filename"`
	MusicVolume   float64 `json:"music_volume"`
}

type brollParams struct {
	Filename string   `json:"filename"`
	Keywords []string `json:"keywords"`
}

type aiEditParams struct {
	Filename      string  `json:"filename"`
	UserInput     string  `json:"user_input"`
	MusicFileID   *string `json:"music_file_id"`
	MusicFilename *string `json:"music_filename"`
}

// aiEditRequest is the flat body the AI edit route reads, with the same
// fields repeated under params.
type aiEditRequest struct {
	FileID        string       `json:"file_id"`
	Filename      string       `json:"filename"`
	UserInput     string       `json:"user_input"`
	MusicFileID   *string      `json:"music_file_id"`
	MusicFilename *string      `json:"music_filename"`
	Params        aiEditParams `json:"params"`
}

// buildRequest returns the path segments below /process and the JSON body for
// a prepared operation.
func buildRequest(kind media.Kind, primary media.AssetHandle, p media.Params) ([]string, any) {
	switch kind {
	case media.KindDedupe:
		return fileRoute(primary, kind), processRequest{
			FileID: primary.ID,
			Params: dedupeParams{Filename: primary.FileName, Model: p.Model, Threshold: p.Threshold},
		}
	case media.KindCaptions:
		return fileRoute(primary, kind), processRequest{
			FileID: primary.ID,
			Params: captionParams{Filename: primary.FileName, FontSize: p.FontSize},
		}
	case media.KindMusic:
		var volume float64
		if p.Volume != nil {
			volume = *p.Volume
		}
		return fileRoute(primary, kind), processRequest{
			FileID: primary.ID,
			Params: musicParams{
				Filename:      primary.FileName,
				MusicFileID:   p.MusicFileID,
				MusicFilename: p.MusicFileName,
				MusicVolume:   volume,
			},
		}
	case media.KindBroll:
		return fileRoute(primary, kind), processRequest{
			FileID: primary.ID,
			Params: brollParams{Filename: primary.FileName, Keywords: p.Keywords},
		}
	default:
		musicID := optionalString(p.MusicFileID)
		musicName := optionalString(p.MusicFileName)
		return []string{kind.Route()}, aiEditRequest{
			FileID:        primary.ID,
			Filename:      primary.FileName,
			UserInput:     p.Instruction,
			MusicFileID:   musicID,
			MusicFilename: musicName,
			Params: aiEditParams{
				Filename:      primary.FileName,
				UserInput:     p.Instruction,
				MusicFileID:   musicID,
				MusicFilename: musicName,
			},
		}
	}
}

func fileRoute(primary media.AssetHandle, kind media.Kind) []string {
	return []string{primary.ID, kind.Route()}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
