package seed

import (
	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/provision"
)

const (
	regimeRegistered  = "responsable_inscripto"
	regimeSimplified  = "monotributo"
	receivableCode    = "1135"
	payableCode       = "2111"
	cashCode          = "1111"
	bankCode          = "11141"
	expenseCode       = "5249"
	revenueCode       = "515"
	unitName          = "Unit"
	paymentTermName   = "30 dias"
	paymentTermDays   = 30
	bankJournalName   = "Banco"
	bankPayModeName   = "Acreditacion Banco"
	paymentJournal    = "Manual"
	paymentCurrency   = "USD"
	statementSequence = "Statement"
	posNumber         = 2
	posType           = "manual"
	paperCategory     = "Papeles"
	bomName           = "Computer rev1"
	routingName       = "Computer routing rev1"
	workdayHours      = 8
)

var customers = []provision.Party{
	{
		Name:      "Museo Nacional de Bellas Artes",
		TaxID:     "30714248169",
		TaxRegime: regimeRegistered,
		Addresses: []provision.Address{{
			Street:      "Av. Libertador 1555",
			Zip:         "1503",
			City:        "Ciudad Autonoma de Buenos Aires",
			Country:     "AR",
			Subdivision: "AR-C",
		}},
		Contacts: []provision.Contact{
			{Type: "phone", Value: "(011) 963-6590"},
			{Type: "website", Value: "https://www.bellasartes.gob.ar/"},
		},
	},
	{
		Name:      "Biblioteca Utopia",
		TaxID:     "30518428264",
		TaxRegime: regimeRegistered,
		Addresses: []provision.Address{{
			Street:      "Corrientes 1543",
			Zip:         "1506",
			City:        "Ciudad Autonoma de Buenos Aires",
			Country:     "AR",
			Subdivision: "AR-C",
		}},
		Contacts: []provision.Contact{
			{Type: "phone", Value: "(011) 348-3000"},
			{Type: "website", Value: "http://www.centrocultural.coop/"},
		},
	},
	{
		Name:      "Calixto Cafe y Bistro",
		TaxID:     "30712374310",
		TaxRegime: regimeRegistered,
		Addresses: []provision.Address{{
			Street:      "Catamarca 2127",
			Zip:         "1509",
			City:        "Rosario",
			Country:     "AR",
			Subdivision: "AR-S",
		}},
		Contacts: []provision.Contact{
			{Type: "phone", Value: "(341) 346-6883"},
		},
	},
}

var suppliers = []provision.Party{
	{Name: "Saber", TaxID: "30714546178", TaxRegime: regimeRegistered},
}

func person(name, taxID string) provision.Party {
	return provision.Party{Name: name, TaxID: taxID, TaxRegime: regimeSimplified}
}

var mainEmployees = []provision.Party{
	person("Roberto Owen", "20060304956"),
	person("Guillermo King", "27060304950"),
	person("Felipe Fourier", "20112055011"),
}

var branchEmployees = []provision.Party{
	person("Jorge Leandro Perez", "20119851964"),
	person("Nicolas Gutierrez", "23082897399"),
	person("Angela Lopez", "20283836178"),
	person("Floreal Gorini", "23241278719"),
}

var subsidiary = provision.Party{
	Name:      "Papelera Silplast",
	TaxID:     "30714324655",
	TaxRegime: regimeRegistered,
	Addresses: []provision.Address{{City: "La Plata", Country: "AR", Subdivision: "AR-B"}},
}

var branch = provision.Party{
	Name:      "Papelera Silplast Resistencia",
	TaxID:     "30610459834",
	TaxRegime: regimeRegistered,
	Addresses: []provision.Address{{City: "Resistencia", Country: "AR", Subdivision: "AR-H"}},
}

// invoiceSequences are the strict sequences of a fiscal year, keyed by the
// fiscal year field that references them.
var invoiceSequences = []struct{ field, name string }{
	{"out_invoice_sequence", "Factura"},
	{"in_invoice_sequence", "Factura Proveedor"},
	{"out_credit_note_sequence", "Nota de Credito"},
	{"in_credit_note_sequence", "Nota de credito proveedor"},
}

var voucherSequences = []struct{ field, name, code string }{
	{"payment_sequence", "Recibo de Pago", "account.voucher.payment"},
	{"receipt_sequence", "Recibo de Cobro", "account.voucher.receipt"},
}

// posSequences are the invoice types numbered by the manual point of sale.
var posSequences = []struct{ invoiceType, name string }{
	{"1", "01-Factura A"},
	{"3", "03-Nota de Credito A"},
	{"6", "06-Factura B"},
	{"8", "08-Nota de Credito B"},
	{"11", "11-Factura C"},
	{"13", "13-Nota de Credito C"},
}

var paperFormats = []string{"A5", "A4", "A3", "Carta", "Legal", "Libro mayor"}

var (
	paperQuantities = []int{250, 500, 1000, 2500}
	paperListUnit   = decimal.RequireFromString("0.02")
	paperCostUnit   = decimal.RequireFromString("0.01")
	paperMargin     = decimal.RequireFromString("1.01")
)

type component struct {
	name       string
	list, cost int64
}

var computerParts = []component{
	{"Tower", 400, 250},
	{"Keyboard", 30, 10},
	{"Mouse", 10, 5},
	{"Screen", 300, 200},
}

var computer = component{"Computer", 750, 465}

// routingOperations maps each operation to its work center category.
var routingOperations = []struct{ name, category string }{
	{"Assemble pieces", "Assembly"},
	{"Install software", "Installation"},
	{"Test", "Installation"},
	{"Package", "Packaging"},
}

var workCenterLines = []struct {
	prefix, category, costMethod string
	costPrice                    int64
}{
	{"Assembly Line", "Assembly", "cycle", 20},
	{"Installation Line", "Installation", "hour", 15},
	{"Packaging Line", "Packaging", "hour", 10},
}

var projects = []struct {
	name  string
	tasks []string
}{
	{"Website", []string{"analysis", "design", "setup"}},
	{"Labels", []string{"design"}},
	{"Calendar", []string{"design"}},
}

var timesheetWorks = []string{"Marketing", "Accounting", "Secretary"}
