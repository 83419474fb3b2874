package model

type OrderRecord struct {
	Status   string   `json:"status"`
	Expected string   `json:"expected"`
	Items    []string `json:"items"`
}
