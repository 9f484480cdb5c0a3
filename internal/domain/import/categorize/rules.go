package categorize

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule assigns a category to descriptions matching any of its patterns or keywords
type Rule struct {
	Category string   `yaml:"name"`
	Patterns []string `yaml:"patterns"` // regular expressions, matched case-insensitively
	Keywords []string `yaml:"keywords"` // literal substrings, matched case-insensitively
}

// RulesFile is the YAML layout of a category rules file
type RulesFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadRules reads rules in the form `categories: [{name, patterns, keywords}]`
func LoadRules(r io.Reader) ([]Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading category rules: %w", err)
	}

	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing category rules: %w", err)
	}

	for i, rule := range file.Categories {
		if rule.Category == "" {
			return nil, fmt.Errorf("category rule %d has no name", i)
		}
	}
	return file.Categories, nil
}

// LoadRulesFile reads rules from a YAML file on disk
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening category rules: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// DefaultRules returns the built-in merchant table for Ukrainian and EU statements
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: "Groceries",
			Patterns: []string{`pingo\s*doce|pgo\s*doce`, `mini\s*pre[cç]o`, `\bnovus\b`, `(?:^|[^\p{L}])фора(?:[^\p{L}]|$)`, `ашан|auchan`},
			Keywords: []string{"continente", "lidl", "aldi", "mercadona", "intermarche", "сільпо", "silpo", "атб", "varus", "metro cash", "пятерочка", "перекресток", "rewe", "edeka", "supermarket", "супермаркет", "продукти", "grocery"},
		},
		{
			Category: "Restaurants",
			Patterns: []string{`mc\s*donald`, `burger\s*king`, `\bkfc\b`, `pizza\s*hut`, `uber\s*eats`, `bolt\s*food`, `(?:^|[^\p{L}])(?:caf[eé]|кафе)(?:[^\p{L}]|$)`},
			Keywords: []string{"starbucks", "glovo", "restaurant", "ресторан", "coffee", "кава", "кофе", "pizza", "піца", "sushi", "суші", "puzata", "пузата", "aroma kava", "львівські круасани"},
		},
		{
			Category: "Transport",
			Patterns: []string{`\buber\b`, `\bbolt\b`, `free\s*now|freenow`, `viva\s*viagem`, `\bcp\s*-\s*comboios|comboios\s*portugal`},
			Keywords: []string{"uklon", "уклон", "taxi", "таксі", "такси", "wog", "okko", "socar", "galp", "shell", "parking", "паркінг", "укрзалізниця", "uz.gov", "метрополітен", "fuel", "пальне", "азс"},
		},
		{
			Category: "Shopping",
			Patterns: []string{`h\s*&\s*m`, `\bzara\b`},
			Keywords: []string{"amazon", "primark", "ikea", "worten", "fnac", "rozetka", "розетка", "prom.ua", "aliexpress", "epicentr", "епіцентр", "comfy", "foxtrot", "фокстрот", "eldorado", "makeup"},
		},
		{
			Category: "Utilities",
			Patterns: []string{`\bedp\b`, `\bepal\b`, `\bmeo\b|altice`, `\bnos\b`, `комунальн`, `(?:^|[^\p{L}])(?:жкг|жкх)(?:[^\p{L}]|$)`},
			Keywords: []string{"vodafone", "kyivstar", "київстар", "lifecell", "лайфсел", "yasno", "ясно", "нафтогаз", "naftogaz", "водоканал", "energy", "електроенергі", "газопостач", "internet", "інтернет", "volia", "воля"},
		},
		{
			Category: "Entertainment",
			Patterns: []string{`playstation|\bpsn\b`, `xbox|microsoft\s*games`, `\bsteam\b`, `(?:^|[^\p{L}])(?:кіно|кино)(?:[^\p{L}]|$)|cinema`},
			Keywords: []string{"multiplex", "мультиплекс", "planeta kino", "планета кіно", "concert", "концерт", "theatre", "театр", "ticket", "квиток", "karabas", "карабас"},
		},
		{
			Category: "Subscriptions",
			Patterns: []string{`disney\s*\+|disneyplus`, `apple\.com|apple\s*music|itunes`, `google\s*(?:play|storage|one)`},
			Keywords: []string{"netflix", "spotify", "youtube premium", "megogo", "мегого", "sweet.tv", "icloud", "chatgpt", "openai", "patreon", "subscription", "підписка", "подписка"},
		},
		{
			Category: "Health",
			Patterns: []string{`farm[aá]cia|pharmacy`, `аптек`},
			Keywords: []string{"wells", "doctor", "лікар", "clinic", "клініка", "клиника", "dentist", "стоматолог", "hospital", "лікарня", "synevo", "сінево", "medical"},
		},
		{
			Category: "Transfers",
			Patterns: []string{`переказ|перевод\s+(?:на|с)\s+карт`, `transfer\s+(?:to|from)`, `\bp2p\b`},
			Keywords: []string{"з картки", "на картку", "transferwise", "wise.com", "revolut", "paypal", "mb way", "mbway"},
		},
		{
			Category: "Cash",
			Patterns: []string{`\batm\b`, `зняття\s+готівки|снятие\s+наличных`, `cash\s+withdrawal`},
			Keywords: []string{"банкомат", "готівка", "наличные", "multibanco", "levantamento"},
		},
		{
			Category: "Income",
			Patterns: []string{`зарплат|заробітн`, `\bsalary\b|\bpayroll\b`, `sal[aá]rio`},
			Keywords: []string{"зарахування зарплати", "cashback", "кешбек", "кешбэк", "відсотки", "interest", "dividend", "дивіденд", "refund", "повернення"},
		},
		{
			Category: "Travel",
			Patterns: []string{`ryanair`, `tap\s*portugal|tap\s*air`, `wizz\s*air`, `booking\.com`, `airbnb`},
			Keywords: []string{"hotel", "готель", "гостиниця", "flixbus", "hostel", "airlines", "авіаквит", "easyjet", "lufthansa"},
		},
	}
}
