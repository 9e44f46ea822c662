package main

import (
	"encoding/json"
	"io"

	"github.com/Alias1177/Problepo/models"
)

func printJSON(w io.Writer, res *models.PredictionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
