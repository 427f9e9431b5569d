package currency

// Currency is one of the currencies the converter understands.
type Currency int

const (
	EUR Currency = iota
	USD
	GBP
	TRY
)

func (c Currency) String() string {
	switch c {
	case EUR:
		return "EUR"
	case USD:
		return "USD"
	case GBP:
		return "GBP"
	case TRY:
		return "TRY"
	default:
		return "unknown"
	}
}

func (c Currency) Symbol() string {
	switch c {
	case EUR:
		return "€"
	case USD:
		return "$"
	case GBP:
		return "£"
	case TRY:
		return "₺"
	default:
		return ""
	}
}

// priority is the order currencies are searched for in a message.
var priority = []Currency{EUR, USD, GBP, TRY}

// keywords holds the lowercased words, including Turkish suffixed forms with
// both apostrophe styles, that name each currency.
var keywords = map[Currency]map[string]struct{}{
	EUR: set("eur", "euro", "euros", "yuro", "avro", "euroya", "euroa", "euronun", "eurocuk",
		"euro'a", "euro’a", "euro'nun", "euro’nun", "euro'ya", "euro’ya",
		"euroluk", "euro'luk", "euro’luk", "€"),
	USD: set("$", "usd", "dolar", "dollar", "dollars", "dolares", "dolara", "dolarlik", "dolarin",
		"dolarla", "dolar'a", "dolar'la", "dolar’a", "dolar’la", "dolar’in", "dolar'in", "dolarcik"),
	GBP: set("gbp", "pound", "pounds", "£", "pounda", "pound'a", "pound’a", "poundla", "pound'la",
		"pound’la", "poundin", "pound'in", "pound’in", "poundluk", "pound'luk", "pound’luk"),
	TRY: set("tl", "try", "lira"),
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
