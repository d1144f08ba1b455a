package rules

// categorySignal pairs a category with the keywords that indicate it.
type categorySignal struct {
	category string
	keywords []string
}

// categorySignals is tested in order: more specific categories must come
// before broader ones ("nicotine_pouches" before "pod", "disposable" before
// "device") or the broad match wins incorrectly.
var categorySignals = []categorySignal{
	{"nicotine_pouches", []string{"nicotine pouch", "nicotine pouches", "nic pouch", "snus"}},
	{"disposable", []string{"disposable", "puff bar", "puffs"}},
	{"CBD", []string{"cbd", "cannabidiol", "hemp oil", "hemp extract"}},
	{"coil", []string{"coil", "coils", "mesh head", "atomizer head"}},
	{"pod", []string{"pod", "pods", "replacement cartridge"}},
	{"e-liquid", []string{
		"e-liquid", "eliquid", "e liquid", "vape juice", "shortfill",
		"short fill", "nic salt", "longfill", "juice",
	}},
	{"device", []string{"kit", "mod", "vape pen", "device", "battery"}},
	{"accessory", []string{"charger", "case", "drip tip", "cotton", "lanyard", "tool", "adapter"}},
}

// flavorSignals maps flavor-family tags to their trigger keywords.
var flavorSignals = map[string][]string{
	"fruity": {
		"strawberry", "raspberry", "blueberry", "berry", "mango", "apple",
		"grape", "watermelon", "melon", "citrus", "lemon", "lime", "orange",
		"peach", "pineapple", "cherry", "banana", "kiwi", "fruit",
	},
	"ice":      {"ice", "iced", "frozen", "arctic", "polar"},
	"mint":     {"mint", "menthol", "spearmint", "peppermint"},
	"dessert":  {"custard", "cake", "donut", "doughnut", "cream", "vanilla", "cookie", "caramel", "waffle", "pastry"},
	"tobacco":  {"tobacco", "cuban", "havana", "ry4"},
	"beverage": {"cola", "coffee", "lemonade", "tea", "energy drink", "mojito", "smoothie"},
	"candy":    {"candy", "bubblegum", "gummy", "sweets", "sherbet", "sour"},
}

// cbdFormSignals maps CBD form tags to their trigger keywords. Forms only
// survive schema filtering when the detected category allows them.
var cbdFormSignals = map[string][]string{
	"oil":         {"oil", "tincture", "drops"},
	"gummies":     {"gummies", "gummy"},
	"capsules":    {"capsules", "softgels"},
	"topical":     {"balm", "salve", "topical", "muscle rub"},
	"vape_liquid": {"cbd e liquid", "cbd vape", "cbd juice"},
	"paste":       {"paste"},
}

// cbdSpectrumSignals maps spectrum tags to their trigger keywords.
var cbdSpectrumSignals = map[string][]string{
	"full_spectrum":  {"full spectrum"},
	"broad_spectrum": {"broad spectrum"},
	"isolate":        {"isolate"},
}

// nicotineTypeSignals maps nicotine-type tags to their trigger keywords.
var nicotineTypeSignals = []struct {
	tag      string
	keywords []string
}{
	{"nic_salt", []string{"nic salt", "nicsalt", "nicotine salt", "salt nic"}},
	{"freebase", []string{"freebase", "free base"}},
	{"nicotine_free", []string{"nicotine free", "nicotine-free", "0mg", "zero nicotine"}},
}
