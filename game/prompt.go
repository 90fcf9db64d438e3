package game

// systemPrompt drives every game session. The model plays "Doctor Riddle":
// it invents a hidden diagnosis, presents the case, answers follow-ups and
// judges guesses, replying only with the JSON document described below.
const systemPrompt = `You are Doctor Riddle, running a "guess the disease" diagnostic game.

GAME SETUP (internal):
- Invent ONE patient case: pick a disease, a specific age, a gender and a body system.
- Maximize variety: never reuse the disease, body system, age bracket or gender of recent games, vary severity, acuity and social context.
- Keep the disease secret until the game ends.

PLAYER INTERACTION:
- If the player asks follow-up questions, reveal or update symptoms only when they are relevant to the actual diagnosis; answer irrelevant questions with a plain negative ("No fever", "No rash").
- If the player requests a test, provide realistic results: result value, normal range and unit, all in the same unit and scale. For panels (CBC, CMP, liver panel) list every parameter.
- If the player guesses: accept exact medical terms, common names, abbreviations and synonyms, case-insensitively and ignoring articles ("heart attack", "MI" and "myocardial infarction" are all correct for myocardial_infarction). Reject vague symptoms ("chest pain"), body systems alone ("heart problem") and similar-but-different conditions ("heart failure" for a heart attack).
- If the player gives up, reveal the answer and end the game.

OUTPUT FORMAT - respond ONLY with valid JSON, no markdown fences, no text outside the JSON:
{
  "gameData": {
    "age": 25,
    "gender": "female",
    "bodySystem": "cardiovascular",
    "disease": "myocardial_infarction",
    "symptoms": [{"symptom": "chest pain", "timing": "2 hours", "severity": "severe"}]
  },
  "response": {
    "message": "A 25-year-old female presents with...",
    "type": "case_presentation",
    "finished": false,
    "testResults": null,
    "revealedDisease": {}
  }
}

Response types: "case_presentation" (first turn only), "symptom_update", "test_result", "hint" (wrong guess), "correct_guess", "game_over".

For single tests set testResults to {"testName","result","normalRange","unit"}; for panels use {"testName","parameters":[{"parameter","result","normalRange","unit"},...]}.

When the game ends (correct guess or give-up): set "finished" true, fill "revealedDisease" as {"medicalTerm":"...","commonNames":["...","..."]}, and format the message as a structured teaching summary starting with **DIAGNOSIS: [Medical Term]** and **Common Names: ...**, reviewing each clue, test and question and its relevance. Otherwise leave "revealedDisease" empty and never name the disease in the message.

Use Markdown inside the message field. "disease" in gameData is backend-internal tracking only.`

// jsonReminder is appended to every user message sent to the model.
const jsonReminder = "\n\nRemember: Respond ONLY with JSON, no other text."

const (
	minSeedAge = 18
	maxSeedAge = 85
)

var seedGenders = []string{"male", "female"}

// seedBodySystems feeds the forced-random seed and the variety
// recommendations.
var seedBodySystems = []string{
	"cardiovascular", "respiratory", "gastrointestinal", "neurological",
	"endocrine", "musculoskeletal", "infectious", "hematologic",
	"autoimmune", "psychiatric", "dermatologic", "genitourinary",
	"ophthalmologic", "otolaryngology", "gynecologic", "urologic",
	"oncologic", "allergic", "rheumatologic", "hepatobiliary",
	"nephrology", "vascular", "metabolic", "nutritional", "toxicologic",
	"traumatic", "congenital", "pediatric", "geriatric", "emergency",
	"critical_care", "pulmonary", "gastroenterology", "cardiothoracic",
	"neurosurgical", "orthopedic", "plastic_surgery", "anesthetic",
	"radiologic", "pathologic",
}

// rangedSeedPrompts pin a demographic range and system explicitly.
var rangedSeedPrompts = []string{
	"Pick a random age between 18-25, use cardiovascular system, make it a female patient",
	"Pick a random age between 45-60, use respiratory system, make it a male patient",
	"Pick a random age between 25-35, use gastrointestinal system, make it a female patient",
	"Pick a random age between 60-75, use neurological system, make it a male patient",
	"Pick a random age between 35-50, use endocrine system, make it a female patient",
	"Pick a random age between 20-30, use musculoskeletal system, make it a male patient",
	"Pick a random age between 50-65, use infectious disease, make it a female patient",
	"Pick a random age between 30-45, use hematologic system, make it a male patient",
	"Pick a random age between 65-80, use autoimmune condition, make it a female patient",
	"Pick a random age between 18-28, use psychiatric condition with somatic symptoms, make it a male patient",
}

// varietySeedPrompts nudge diversity without pinning demographics.
var varietySeedPrompts = []string{
	"Create a completely unique case from a different body system than usual. Vary age, gender, and symptoms dramatically.",
	"Generate a case from a different medical category with unique demographics. Avoid repetitive patterns.",
	"Start a fresh game with a different age group, gender, and completely different symptom profile.",
	"Create a diagnostic challenge from a new body system. Use unique age, varied symptoms, and different presentation style.",
	"Begin with a case that's completely different from typical presentations. Rotate body systems and demographics.",
	"Generate a unique medical mystery with different age, gender, and symptom combinations than usually seen.",
	"Create a case from a different disease category with varied demographics and unique symptom presentation.",
	"Start a completely different type of case. Vary the body system, age range, and symptom profile significantly.",
	"Generate a diagnostic puzzle with unique demographics and symptoms from a different medical category.",
	"Create a fresh case that breaks typical patterns. Use different age, gender, body system, and symptom combinations.",
	"Begin with a case from a different specialty area. Ensure completely different demographics and symptom profile.",
	"Generate a unique presentation with different age group, gender, and body system than commonly used.",
}
