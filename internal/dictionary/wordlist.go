package dictionary

import "strings"

// baseWordList is the static base dictionary. It is deliberately small:
// scholarly prose is full of vocabulary no fixed list covers, which is
// why Contains combines this list with the whitelist, morphology, and
// the learned layer instead of trusting lookup alone.
var baseWordList = strings.Fields(`
a able about above accept across act action actual actually add after
again against age ago agree all allow almost alone along already also
although always am among amount an analysis ancient and animal another
answer any anyone anything appear apply approach are area argue argument
arise around art article as ask aspect assume at attempt attention author
available away back bad base basic basis be bear beautiful beauty became
because become been before began begin beginning behind being believe
belong below best better between beyond black blue body book born both
break bring broad brought build but buy by call came can cannot care
carry case cause center central century certain chance change chapter
character check child choice choose chose church city claim class clear
clearly close cold come common community complete completely concept
concern condition consider contain continue contrast control could country
course court create criticism critique cultural culture current cut dark
day dead deal death decade decide deep define degree demand depend
describe design desire despite detail determine develop development did
die difference different difficult direct direction discuss discussion
distance distinct do doctrine does done doubt down draw drawn during each
early earth easy economic edge edition effect effort eight either element
else empirical end enough enter entire equal era error especially essay
essence essential establish even evening event ever every everything
evidence exact exactly example except exist existence expect experience
explain express expression extent eye face fact factor fail fall false
familiar family far fear feel feeling few field figure final finally find
fine first five focus follow following foot for force foreign form formal
former found four free freedom from full function further future gave
general generally genuine get give given go god good govern government
great greater ground group grow growth had half hand happen hard has have
he head hear heard heart held help hence her here herself high him himself
his historical history hold home hope hour house how however human hundred
idea ideal identity if image imagine immediate important in include indeed
independent individual influence inner inside instance instead intellectual
intention interest internal interpret interpretation into introduce
introduction involve is issue it item its itself join judge judgment just
justice keep kept key kind knew know knowledge known language large last
late later law lead learn least leave lecture led left less let letter
level lie life light like likely limit line list literal literary
literature little live local logic logical long look lose loss lost love
low made main maintain major make man manner many mark material matter may
me mean meaning means meant measure medieval meet member memory men mental
mention mere merely method middle might mind mine model modern moment
moral more moreover morning most move movement much must my myself name
narrow natural nature near nearly necessary necessity need negative
neither never nevertheless new next night nine no nor not note nothing
notion novel now number object objective observation observe obtain
obvious occasion occur of off offer often old on once one only onto open
opinion oppose opposite or order origin original other others otherwise
our out outside over own page paper part particular particularly pass
passage past perceive perception perhaps period person personal phenomenon
philosopher philosophical philosophy physical picture piece place plain
plan play point political position positive possibility possible power
practical practice present press pretty previous primary principle print
prior private probably problem process produce product progress project
proof proper property propose prove provide public publish published pure
purpose put question quite raise range rather reach read reader reading
real reality really reason receive recent recognize refer reference
reflect reflection regard region relate relation relationship relative
remain remark remember render report represent require research respect
response rest result return reveal review right rise role room rule run
said same saw say scholar scholarly school science scientific second
section see seek seem seen self sense sentence separate series serious
serve set seven several shall shape share sharp she short should show
shown side sight sign significance significant similar simple simply since
single situation six small so social society some someone something
sometimes somewhat soon sort sought soul sound source space speak special
specific speech spirit spiritual stage stand standard start state
statement still stood stop strength strong structure student study style
subject submit substance succeed success such suggest summer sunset
support suppose sure surface system take taken talk task teach teaching
tell ten term text than that the their theme themselves then theory there
therefore these they thing think third this those though thought three
through throughout thus time title to today together told too took topic
total touch toward tradition translate translation treat true truth turn
twentieth two type under understand understanding unity universal
university unless until up upon us use used useful value various very view
virtue vision voice volume want war was watch water way we well went were
what whatever when where whether which while white who whole whom whose
why wide will wish with within without word work world would write writer
writing written wrong year years yet you young your
`)

// scholarlyTerms is the built-in whitelist of foreign, technical, and
// proper-name vocabulary that plain dictionary lookup would flag.
// Callers extend it through configuration; it is never serialized.
var scholarlyTerms = []string{
	// German philosophical vocabulary
	"dasein", "aufhebung", "angst", "gestalt", "geist", "weltanschauung",
	"zeitgeist", "lebenswelt", "verstehen", "ursprung", "gelassenheit",
	"ereignis", "vorhandenheit", "zuhandenheit", "mitsein",

	// Greek and Latin terms
	"aporia", "aletheia", "logos", "telos", "ousia", "physis", "polis",
	"praxis", "phronesis", "techne", "eidos", "nous", "psyche", "arete",
	"doxa", "episteme", "kairos", "mimesis", "catharsis", "hubris",
	"a priori", "a posteriori", "cogito", "qualia", "quale", "summum",
	"bonum", "ratio", "natura", "ipso", "facto", "sui", "generis",

	// French theory vocabulary
	"différance", "differance", "bricolage", "jouissance", "parole",
	"langue", "écriture", "ecriture", "supplément", "supplement",

	// Technical philosophy terms rarely in base dictionaries
	"noumenal", "noumenon", "phenomenal", "phenomenological",
	"phenomenology", "hermeneutic", "hermeneutics", "ontological",
	"ontology", "epistemological", "epistemology", "teleological",
	"teleology", "dialectic", "dialectical", "transcendental",
	"intentionality", "facticity", "thrownness", "historicity",
	"intersubjectivity", "immanence", "alterity", "ipseity",

	// Proper names common in the corpus
	"heidegger", "husserl", "kant", "hegel", "nietzsche", "kierkegaard",
	"derrida", "foucault", "deleuze", "levinas", "merleau-ponty",
	"gadamer", "habermas", "adorno", "wittgenstein", "aristotle",
	"plato", "socrates", "aquinas", "augustine", "spinoza", "leibniz",
	"descartes", "hume", "locke", "berkeley", "rousseau", "schelling",
	"schopenhauer", "dilthey", "brentano", "frege", "quine",
}

// newBaseSet builds the lookup set for the base dictionary
func newBaseSet() map[string]struct{} {
	set := make(map[string]struct{}, len(baseWordList))
	for _, word := range baseWordList {
		set[word] = struct{}{}
	}
	return set
}

// newWhitelistSet builds the scholarly whitelist, folding in any extra
// vocabulary from configuration
func newWhitelistSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(scholarlyTerms)+len(extra))
	for _, term := range scholarlyTerms {
		set[strings.ToLower(term)] = struct{}{}
	}
	for _, term := range extra {
		term = strings.TrimSpace(strings.ToLower(term))
		if term != "" {
			set[term] = struct{}{}
		}
	}
	return set
}
