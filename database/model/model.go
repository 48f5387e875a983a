// Package model defines the workbook schema shared by the store backends and
// the services, plus the gorm models of the local backend.
package model

// Worksheet titles.
const (
	PriceSheet = "sheet1"
	UsersSheet = "Users"
	LogsSheet  = "Logs"
)

// Users sheet headers. The password hash lives in column 2.
const (
	UserEmail          = "email"
	UserPassword       = "password"
	UserName           = "name"
	UserPasswordColumn = 2
)

// Price sheet headers.
const (
	PriceNo          = "NO."
	PriceSpec        = "規格"
	PriceList        = "牌價"
	PriceDealer      = "經銷價"
	PriceDescription = "說明"
	PriceOrderOnly   = "訂購品(V)"
)

// Logs sheet headers, positional.
var LogHeader = []string{"timestamp", "actor", "action", "note"}

// UserHeader is the header row of the Users sheet.
var UserHeader = []string{UserEmail, UserPassword, UserName}

// PriceHeader is the header row a fresh price sheet starts with.
var PriceHeader = []string{PriceNo, PriceSpec, PriceList, PriceDealer, PriceDescription, PriceOrderOnly}

// Worksheet is one tab of a workbook in the local backend.
type Worksheet struct {
	Id        int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Workbook  string `json:"workbook" gorm:"uniqueIndex:idx_workbook_title;not null"`
	Title     string `json:"title" gorm:"uniqueIndex:idx_workbook_title;not null"`
	SortOrder int    `json:"sortOrder"`
}

// SheetRow is one row of a worksheet. Cells holds a JSON array of strings.
type SheetRow struct {
	Id          int    `json:"id" gorm:"primaryKey;autoIncrement"`
	WorksheetId int    `json:"worksheetId" gorm:"uniqueIndex:idx_sheet_row;not null"`
	Position    int    `json:"position" gorm:"uniqueIndex:idx_sheet_row;not null"`
	Cells       string `json:"cells" gorm:"not null;default:'[]'"`
}
