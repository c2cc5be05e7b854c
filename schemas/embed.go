// Package schemas embeds the JSON Schema documents describing the CRM envelopes the
// agent consumes and the status contract it serves.
package schemas

import "embed"

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Schema file names.
const (
	CRMList   = "crm_list.schema.json"
	CRMObject = "crm_object.schema.json"
	Status    = "status.schema.json"
)
