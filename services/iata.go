package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// cityByAirport collapses airport codes to their metro-area grouping code.
// Flight pricing indexes inventory by city code where one exists, so a city
// code always matches at least as much as any single airport under it.
var cityByAirport = map[string]string{
	"GRU": "SAO", "CGH": "SAO", "VCP": "SAO",
	"GIG": "RIO", "SDU": "RIO",
	"CNF": "BHZ", "PLU": "BHZ",
	"LHR": "LON", "LGW": "LON", "STN": "LON", "LTN": "LON", "LCY": "LON",
	"CDG": "PAR", "ORY": "PAR", "BVA": "PAR",
	"JFK": "NYC", "LGA": "NYC", "EWR": "NYC",
	"FCO": "ROM", "CIA": "ROM",
	"NRT": "TYO", "HND": "TYO",
	"EZE": "BUE", "AEP": "BUE",
	"SCL": "SCL",
	"MXP": "MIL", "LIN": "MIL", "BGY": "MIL",
	"ARN": "STO", "BMA": "STO", "NYO": "STO",
	"DME": "MOW", "SVO": "MOW", "VKO": "MOW",
	"IAD": "WAS", "DCA": "WAS", "BWI": "WAS",
	"ORD": "CHI", "MDW": "CHI",
	"YYZ": "YTO", "YTZ": "YTO",
}

// iataAliases maps normalized place names to IATA city/airport codes. Three
// groups: Brazilian capitals and major cities, touristic destinations that
// have no airport of their own (mapped to the nearest served city), and
// frequent international destinations and countries mapped to their main hub.
var iataAliases = map[string]string{
	// Brazilian capitals and major cities
	"sao paulo":         "SAO",
	"rio de janeiro":    "RIO",
	"rio":               "RIO",
	"brasilia":          "BSB",
	"belo horizonte":    "BHZ",
	"salvador":          "SSA",
	"recife":            "REC",
	"fortaleza":         "FOR",
	"natal":             "NAT",
	"maceio":            "MCZ",
	"joao pessoa":       "JPA",
	"aracaju":           "AJU",
	"teresina":          "THE",
	"sao luis":          "SLZ",
	"belem":             "BEL",
	"manaus":            "MAO",
	"macapa":            "MCP",
	"boa vista":         "BVB",
	"porto velho":       "PVH",
	"rio branco":        "RBR",
	"palmas":            "PMW",
	"cuiaba":            "CGB",
	"campo grande":      "CGR",
	"goiania":           "GYN",
	"curitiba":          "CWB",
	"florianopolis":     "FLN",
	"porto alegre":      "POA",
	"vitoria":           "VIX",
	"foz do iguacu":     "IGU",
	"porto seguro":      "BPS",
	"ilheus":            "IOS",
	"juazeiro do norte": "JDO",
	"uberlandia":        "UDI",
	"londrina":          "LDB",
	"navegantes":        "NVT",
	"caldas novas":      "CLV",

	// destinations without their own airport, mapped to the nearest served city
	"maragogi":                "MCZ",
	"sao miguel dos milagres": "MCZ",
	"porto de galinhas":       "REC",
	"jericoacoara":            "JJD",
	"canoa quebrada":          "FOR",
	"jalapao":                 "PMW",
	"lencois maranhenses":     "SLZ",
	"barreirinhas":            "SLZ",
	"atins":                   "SLZ",
	"fernando de noronha":     "FEN",
	"gramado":                 "POA",
	"canela":                  "POA",
	"bonito":                  "BYO",
	"pantanal":                "CGB",
	"chapada diamantina":      "LEC",
	"lencois":                 "LEC",
	"chapada dos veadeiros":   "BSB",
	"alto paraiso de goias":   "BSB",
	"pirenopolis":             "BSB",
	"buzios":                  "RIO",
	"arraial do cabo":         "RIO",
	"cabo frio":               "CFB",
	"paraty":                  "RIO",
	"ilha grande":             "RIO",
	"angra dos reis":          "RIO",
	"ubatuba":                 "SAO",
	"ilhabela":                "SAO",
	"campos do jordao":        "SAO",
	"trancoso":                "BPS",
	"arraial d ajuda":         "BPS",
	"caraiva":                 "BPS",
	"itacare":                 "IOS",
	"morro de sao paulo":      "SSA",
	"praia do forte":          "SSA",
	"pipa":                    "NAT",
	"sao miguel do gostoso":   "NAT",
	"galinhos":                "NAT",
	"alter do chao":           "STM",
	"santarem":                "STM",
	"balneario camboriu":      "NVT",
	"beto carrero":            "NVT",
	"penha":                   "NVT",
	"holambra":                "SAO",
	"olimpia":                 "SAO",
	"serra gaucha":            "POA",
	"vale dos vinhedos":       "POA",
	"bento goncalves":         "POA",
	"monte verde":             "SAO",
	"capitolio":               "BHZ",
	"tiradentes":              "BHZ",
	"ouro preto":              "BHZ",
	"sao joao del rei":        "BHZ",

	// international cities and countries → primary hub
	"buenos aires":         "BUE",
	"argentina":            "BUE",
	"bariloche":            "BRC",
	"mendoza":              "MDZ",
	"santiago":             "SCL",
	"chile":                "SCL",
	"montevideo":           "MVD",
	"uruguai":              "MVD",
	"punta del este":       "PDP",
	"lima":                 "LIM",
	"peru":                 "LIM",
	"cusco":                "CUZ",
	"machu picchu":         "CUZ",
	"bogota":               "BOG",
	"colombia":             "BOG",
	"cartagena":            "CTG",
	"san andres":           "ADZ",
	"cidade do mexico":     "MEX",
	"mexico":               "MEX",
	"cancun":               "CUN",
	"nova york":            "NYC",
	"nova iorque":          "NYC",
	"new york":             "NYC",
	"estados unidos":       "NYC",
	"miami":                "MIA",
	"orlando":              "MCO",
	"los angeles":          "LAX",
	"las vegas":            "LAS",
	"san francisco":        "SFO",
	"chicago":              "CHI",
	"toronto":              "YTO",
	"canada":               "YTO",
	"vancouver":            "YVR",
	"lisboa":               "LIS",
	"portugal":             "LIS",
	"porto":                "OPO",
	"madri":                "MAD",
	"madrid":               "MAD",
	"espanha":              "MAD",
	"barcelona":            "BCN",
	"paris":                "PAR",
	"franca":               "PAR",
	"londres":              "LON",
	"inglaterra":           "LON",
	"reino unido":          "LON",
	"roma":                 "ROM",
	"italia":               "ROM",
	"milao":                "MIL",
	"veneza":               "VCE",
	"florenca":             "FLR",
	"amsterda":             "AMS",
	"holanda":              "AMS",
	"berlim":               "BER",
	"alemanha":             "FRA",
	"frankfurt":            "FRA",
	"munique":              "MUC",
	"zurique":              "ZRH",
	"suica":                "ZRH",
	"viena":                "VIE",
	"austria":              "VIE",
	"praga":                "PRG",
	"atenas":               "ATH",
	"grecia":               "ATH",
	"santorini":            "JTR",
	"istambul":             "IST",
	"turquia":              "IST",
	"dubai":                "DXB",
	"doha":                 "DOH",
	"toquio":               "TYO",
	"japao":                "TYO",
	"seul":                 "SEL",
	"pequim":               "BJS",
	"china":                "BJS",
	"xangai":               "SHA",
	"bangkok":              "BKK",
	"tailandia":            "BKK",
	"phuket":               "HKT",
	"bali":                 "DPS",
	"indonesia":            "DPS",
	"singapura":            "SIN",
	"sydney":               "SYD",
	"australia":            "SYD",
	"auckland":             "AKL",
	"nova zelandia":        "AKL",
	"joanesburgo":          "JNB",
	"africa do sul":        "JNB",
	"cidade do cabo":       "CPT",
	"cairo":                "CAI",
	"egito":                "CAI",
	"marrocos":             "CMN",
	"marraquexe":           "RAK",
	"tel aviv":             "TLV",
	"israel":               "TLV",
	"havana":               "HAV",
	"cuba":                 "HAV",
	"panama":               "PTY",
	"san jose":             "SJO",
	"costa rica":           "SJO",
	"aruba":                "AUA",
	"curacao":              "CUR",
	"punta cana":           "PUJ",
	"republica dominicana": "PUJ",
	"maldivas":             "MLE",
}

var countrySuffixes = []string{"brasil", "brazil", "portugal", "argentina", "chile"}

var bareCodeRegex = regexp.MustCompile(`\b([A-Z]{3})\b`)

// IataResolver resolves free-text place names to IATA city/airport codes:
// embedded alias tables first, then the Travelpayouts place autocomplete.
type IataResolver struct {
	autocompleteURL string
	httpClient      *http.Client
	logger          *zap.Logger
}

func NewIataResolver(logger *zap.Logger) *IataResolver {
	return &IataResolver{
		autocompleteURL: "https://autocomplete.travelpayouts.com/places2",
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		logger:          logger,
	}
}

// Resolve returns the IATA code for a free-text place, or "" when no step
// could resolve one. Callers must treat "" as "cannot search flights" and
// skip the flight section rather than failing the request.
func (r *IataResolver) Resolve(ctx context.Context, term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}

	// A bare 3-letter uppercase token is taken as an IATA code directly.
	if m := bareCodeRegex.FindStringSubmatch(term); len(m) > 1 {
		return r.preferCity(m[1])
	}

	for _, candidate := range lookupCandidates(term) {
		if code, ok := iataAliases[candidate]; ok {
			return r.preferCity(code)
		}
	}

	code, err := r.autocomplete(ctx, term)
	if err != nil {
		r.logger.Warn("place autocomplete failed, leaving unresolved",
			zap.String("term", term), zap.Error(err))
		return ""
	}
	return r.preferCity(code)
}

// lookupCandidates builds the normalized variants tried against the alias
// table: the full term, the part before the first comma, and the term with a
// trailing country name removed ("maragogi brasil" → "maragogi").
func lookupCandidates(term string) []string {
	candidates := []string{NormalizeKey(term)}

	if i := strings.Index(term, ","); i > 0 {
		candidates = append(candidates, NormalizeKey(term[:i]))
	}

	for _, base := range candidates {
		for _, suffix := range countrySuffixes {
			if strings.HasSuffix(base, " "+suffix) {
				candidates = append(candidates, strings.TrimSpace(strings.TrimSuffix(base, suffix)))
			}
		}
	}
	return candidates
}

func (r *IataResolver) preferCity(code string) string {
	if code == "" {
		return ""
	}
	if city, ok := cityByAirport[code]; ok {
		return city
	}
	return code
}

type autocompletePlace struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	CityCode string `json:"city_code"`
	Name     string `json:"name"`
}

func (r *IataResolver) autocomplete(ctx context.Context, term string) (string, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("locale", "pt")
	q.Add("types[]", "city")
	q.Add("types[]", "airport")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.autocompleteURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("autocomplete error (%d): %s", resp.StatusCode, string(body))
	}

	var places []autocompletePlace
	if err := json.Unmarshal(body, &places); err != nil {
		return "", fmt.Errorf("failed to parse autocomplete response: %w", err)
	}

	// Prefer a city result; an airport's city grouping comes next, then the
	// airport's own code.
	for _, p := range places {
		if p.Type == "city" && p.Code != "" {
			return p.Code, nil
		}
	}
	for _, p := range places {
		if p.Type == "airport" {
			if p.CityCode != "" {
				return p.CityCode, nil
			}
			if p.Code != "" {
				return p.Code, nil
			}
		}
	}
	return "", nil
}
