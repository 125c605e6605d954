package testkit

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/sheet"

	"github.com/xuri/excelize/v2"
)

// InventoryGeneratorConfig configures the messy inventory sheet generator
type InventoryGeneratorConfig struct {
	Rows            int       `json:"rows"`
	BlankRowRate    float64   `json:"blank_row_rate"`
	CombinedOwner   float64   `json:"combined_owner_rate"`
	CombinedSerial  float64   `json:"combined_serial_rate"`
	MissingDept     float64   `json:"missing_department_rate"`
	MissingSpecs    float64   `json:"missing_specs_rate"`
	ShuffleColumns  bool      `json:"shuffle_columns"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Seed            int64     `json:"seed"`
	SheetName       string    `json:"sheet_name"`
	PlaceholderText string    `json:"placeholder"`
}

// DefaultInventoryConfig returns sensible defaults for inventory generation
func DefaultInventoryConfig() InventoryGeneratorConfig {
	return InventoryGeneratorConfig{
		Rows:            40,
		BlankRowRate:    0.05,
		CombinedOwner:   0.25,
		CombinedSerial:  0.2,
		MissingDept:     0.1,
		MissingSpecs:    0.3,
		ShuffleColumns:  true,
		StartDate:       time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Seed:            42,
		SheetName:       "Inventaire",
		PlaceholderText: "Inconnu",
	}
}

// ExpectedRecord is the clean truth behind one generated row
type ExpectedRecord struct {
	RowIndex        int
	Type            string
	Marque          string
	Modele          string
	SerialNumber    string
	Proprietaire    string
	Departement     string
	DateAcquisition string
	EstPremiereMain bool
	RAM             string
}

type catalogItem struct {
	marque, modele, typeText, typeTag string
	specs, ram                        string
}

var catalog = []catalogItem{
	{"Dell", "Latitude 5520", "Ordinateur portable", "portable-computer", "Intel Core i5, 16 Go RAM, 512 Go SSD, Windows 11 Pro", "16 GB"},
	{"Lenovo", "ThinkPad T14", "PC portable", "portable-computer", "AMD Ryzen 7, 32 Go, 1 To SSD", "32 GB"},
	{"Dell", "OptiPlex 7090", "Unité centrale", "desktop-computer", "Intel Core i7 - 8 Go RAM - Windows 10", "8 GB"},
	{"HP", "LaserJet Pro M404", "Imprimante", "printer", "", ""},
	{"Samsung", "Galaxy Tab S8", "Tablette", "tablet", "Android 13, 8 GB", "8 GB"},
	{"Apple", "MacBook Pro 14", "Laptop", "portable-computer", "Apple M2, 16 GB RAM, 512 GB SSD, macOS", "16 GB"},
	{"LG", "27UL500", "Écran", "peripheral", "", ""},
	{"HP", "EliteBook 840 G8", "Portable", "portable-computer", "Intel Core i5 8 Go 256 Go SSD", "8 GB"},
}

var owners = []string{
	"Jean Dupont", "Marie Curie", "Ahmed Benali", "Sophie Martin",
	"Lucas Bernard", "Chloé Petit", "Nicolas Moreau", "Camille Laurent",
}

var departments = []string{
	"Comptabilité", "Informatique", "Ressources humaines", "Achats", "Marketing", "Logistique",
}

var frenchMonthNames = []string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// header variants per canonical column, all recognizable by the it profile
var headerVariants = map[string][]string{
	"type":              {"Type", "TYPE DE MATÉRIEL", "Catégorie", "Nature"},
	"marque":            {"Marque", "Fabricant", "MARQUE ", "Constructeur"},
	"modele":            {"Modèle", "Référence", "Désignation", "Libellé"},
	"serial_number":     {"N° de série", "S/N", "Numéro de série", "Service Tag"},
	"proprietaire":      {"Propriétaire", "Utilisateur", "Nom Prénom", "Détenteur"},
	"departement":       {"Département", "Service", "Dép.", "Direction"},
	"date_acquisition":  {"Date d'acquisition", "Date achat", "Date d’achat", "Purchase date"},
	"est_premiere_main": {"Neuf", "Première main", "État neuf"},
	"specifications":    {"Commentaires", "Remarques", "Caractéristiques", "Specs"},
}

var columnOrder = []string{
	"type", "marque", "modele", "serial_number", "proprietaire",
	"departement", "date_acquisition", "est_premiere_main", "specifications",
}

// InventoryGenerator produces messy inventory sheets together with the clean
// records they should map to
type InventoryGenerator struct {
	config InventoryGeneratorConfig
	rng    *rand.Rand
}

// NewInventoryGenerator creates a new generator. The same config always
// produces the same sheet.
func NewInventoryGenerator(config InventoryGeneratorConfig) *InventoryGenerator {
	return &InventoryGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the sheet and the expected record of every non-blank row
func (g *InventoryGenerator) Generate() (*sheet.RawSheet, []ExpectedRecord) {
	columns := append([]string{}, columnOrder...)
	if g.config.ShuffleColumns {
		g.rng.Shuffle(len(columns), func(i, j int) { columns[i], columns[j] = columns[j], columns[i] })
	}

	raw := &sheet.RawSheet{Name: g.config.SheetName}
	for _, col := range columns {
		variants := headerVariants[col]
		raw.Header = append(raw.Header, sheet.Text(variants[g.rng.Intn(len(variants))]))
	}

	var expected []ExpectedRecord
	for len(expected) < g.config.Rows {
		if g.rng.Float64() < g.config.BlankRowRate {
			raw.Rows = append(raw.Rows, make([]sheet.Cell, len(columns)))
			for i := range raw.Rows[len(raw.Rows)-1] {
				raw.Rows[len(raw.Rows)-1][i] = sheet.Empty()
			}
			continue
		}
		cells, truth := g.generateRow()
		truth.RowIndex = len(raw.Rows)

		row := make([]sheet.Cell, len(columns))
		for i, col := range columns {
			row[i] = cells[col]
		}
		raw.Rows = append(raw.Rows, row)
		expected = append(expected, truth)
	}
	return raw, expected
}

// generateRow produces the cells of one item keyed by canonical column
func (g *InventoryGenerator) generateRow() (map[string]sheet.Cell, ExpectedRecord) {
	item := catalog[g.rng.Intn(len(catalog))]
	owner := owners[g.rng.Intn(len(owners))]
	dept := departments[g.rng.Intn(len(departments))]
	serial := g.serialNumber()
	acquired := g.randomDate()

	truth := ExpectedRecord{
		Type:            item.typeTag,
		Marque:          item.marque,
		Modele:          item.modele,
		SerialNumber:    serial,
		Proprietaire:    owner,
		Departement:     dept,
		DateAcquisition: acquired.Format(core.DateLayout),
		RAM:             item.ram,
	}

	cells := map[string]sheet.Cell{
		"type":           sheet.Text(item.typeText),
		"marque":         sheet.Text(g.messyCase(item.marque)),
		"modele":         sheet.Text(item.modele),
		"serial_number":  sheet.Text(serial),
		"proprietaire":   sheet.Text(owner),
		"departement":    sheet.Text(dept),
		"specifications": sheet.Text(item.specs),
	}
	truth.Marque = strings.TrimSpace(cells["marque"].Text)

	// model reference typed into the owner cell, model column left blank
	if g.rng.Float64() < g.config.CombinedOwner {
		ref := fmt.Sprintf("Mod-%d", 100+g.rng.Intn(9900))
		cells["proprietaire"] = sheet.Text(owner + " " + ref)
		cells["modele"] = sheet.Empty()
		truth.Modele = ref
	}

	// department typed after the serial number, department column left blank
	switch r := g.rng.Float64(); {
	case r < g.config.CombinedSerial:
		cells["serial_number"] = sheet.Text(serial + " " + dept)
		cells["departement"] = sheet.Empty()
	case r < g.config.CombinedSerial+g.config.MissingDept:
		cells["departement"] = sheet.Empty()
		truth.Departement = g.config.PlaceholderText
	}

	if item.specs == "" || g.rng.Float64() < g.config.MissingSpecs {
		cells["specifications"] = sheet.Empty()
		truth.RAM = ""
	}

	cells["date_acquisition"] = g.messyDate(acquired)
	cells["est_premiere_main"], truth.EstPremiereMain = g.firstHand()
	return cells, truth
}

func (g *InventoryGenerator) serialNumber() string {
	const letters = "ABCDEFHJKLMNPRTUVWXYZ"
	const alphabet = letters + "0123456789"
	b := make([]byte, 6)
	// leading letter keeps digit runs from reading as a capacity like "16GB"
	b[0] = letters[g.rng.Intn(len(letters))]
	for i := 1; i < len(b); i++ {
		b[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return "SN-" + string(b)
}

func (g *InventoryGenerator) messyCase(s string) string {
	switch g.rng.Intn(4) {
	case 0:
		return strings.ToUpper(s)
	case 1:
		return " " + s + " "
	default:
		return s
	}
}

func (g *InventoryGenerator) randomDate() time.Time {
	span := int(g.config.EndDate.Sub(g.config.StartDate).Hours() / 24)
	if span <= 0 {
		return g.config.StartDate
	}
	return g.config.StartDate.AddDate(0, 0, g.rng.Intn(span+1))
}

// messyDate renders a date the way spreadsheets end up holding them
func (g *InventoryGenerator) messyDate(t time.Time) sheet.Cell {
	switch g.rng.Intn(4) {
	case 0:
		return sheet.Number(SerialFromDate(t))
	case 1:
		return sheet.Text(t.Format("02/01/2006"))
	case 2:
		day := fmt.Sprintf("%d", t.Day())
		if t.Day() == 1 {
			day = "1er"
		}
		return sheet.Text(fmt.Sprintf("%s %s %d", day, frenchMonthNames[t.Month()-1], t.Year()))
	default:
		return sheet.Text(t.Format(core.DateLayout))
	}
}

func (g *InventoryGenerator) firstHand() (sheet.Cell, bool) {
	switch g.rng.Intn(4) {
	case 0:
		return sheet.Text("oui"), true
	case 1:
		return sheet.Text("non"), false
	case 2:
		return sheet.Text("X"), true
	default:
		return sheet.Empty(), true
	}
}

// SerialFromDate converts a date to a spreadsheet day serial (1900 date system)
func SerialFromDate(t time.Time) float64 {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return float64(int(t.UTC().Sub(epoch).Hours() / 24))
}

// WriteWorkbook writes the sheet as an .xlsx workbook
func WriteWorkbook(raw *sheet.RawSheet, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	name := raw.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}

	rows := append([][]sheet.Cell{raw.Header}, raw.Rows...)
	for r, row := range rows {
		for c, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, ref, cell.Interface()); err != nil {
				return err
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}
