package game

import "sort"

// diseaseGroups maps each canonical disease slug to the surface forms a
// player may use for it. Slugs match what the model reports in gameData.
var diseaseGroups = map[string][]string{
	"myocardial_infarction":                 {"heart attack", "mi", "myocardial infarction", "coronary", "acute mi"},
	"cerebrovascular_accident":              {"stroke", "cva", "brain attack", "cerebrovascular accident", "cerebral stroke"},
	"nephrolithiasis":                       {"kidney stones", "renal calculi", "urinary stones", "nephrolithiasis", "kidney stone"},
	"acute_appendicitis":                    {"appendicitis", "acute appendicitis", "inflamed appendix"},
	"pneumonia":                             {"pneumonia", "lung infection", "chest infection", "pulmonary infection"},
	"gastroesophageal_reflux_disease":       {"gerd", "acid reflux", "gastroesophageal reflux disease", "heartburn disease", "reflux"},
	"hypertension":                          {"high blood pressure", "hypertension", "htn", "elevated blood pressure"},
	"diabetes_mellitus":                     {"diabetes", "diabetes mellitus", "dm", "type 1 diabetes", "type 2 diabetes", "diabetic"},
	"osteoarthritis":                        {"arthritis", "osteoarthritis", "degenerative joint disease", "oa", "joint arthritis"},
	"urinary_tract_infection":               {"uti", "urinary tract infection", "bladder infection", "cystitis", "urine infection"},
	"acute_cholecystitis":                   {"gallbladder attack", "cholecystitis", "acute cholecystitis", "gallbladder inflammation"},
	"pulmonary_embolism":                    {"pe", "pulmonary embolism", "blood clot in lung", "lung clot", "pulmonary clot"},
	"atrial_fibrillation":                   {"afib", "a-fib", "atrial fibrillation", "irregular heartbeat", "irregular heart rhythm"},
	"chronic_obstructive_pulmonary_disease": {"copd", "chronic obstructive pulmonary disease", "emphysema", "chronic bronchitis"},
	"deep_vein_thrombosis":                  {"dvt", "deep vein thrombosis", "blood clot", "leg clot", "venous thrombosis"},
	"gastroenteritis":                       {"stomach flu", "food poisoning", "stomach bug", "gastroenteritis", "stomach virus"},
	"migraine":                              {"migraine", "migraine headache", "severe headache", "migraine attack"},
	"asthma":                                {"asthma", "asthma attack", "bronchial asthma", "asthmatic episode"},
	"peptic_ulcer":                          {"stomach ulcer", "peptic ulcer", "gastric ulcer", "duodenal ulcer", "ulcer"},
	"acute_pancreatitis":                    {"pancreatitis", "acute pancreatitis", "pancreas inflammation", "inflamed pancreas"},
	"heart_failure":                         {"heart failure", "congestive heart failure", "chf", "cardiac failure", "pump failure"},
	"seizure_disorder":                      {"seizure", "seizures", "epilepsy", "seizure disorder", "convulsions", "fits"},
	"meningitis":                            {"meningitis", "brain infection", "spinal meningitis", "bacterial meningitis", "viral meningitis"},
	"sepsis":                                {"sepsis", "blood poisoning", "septicemia", "systemic infection", "septic shock"},
	"bowel_obstruction":                     {"bowel obstruction", "intestinal obstruction", "blocked bowel", "blocked intestine", "ileus"},
	"diverticulitis":                        {"diverticulitis", "diverticular disease", "inflamed diverticula", "diverticular infection"},
	"rheumatoid_arthritis":                  {"rheumatoid arthritis", "ra", "autoimmune arthritis", "inflammatory arthritis"},
	"lupus":                                 {"lupus", "sle", "systemic lupus erythematosus", "lupus erythematosus"},
	"multiple_sclerosis":                    {"multiple sclerosis", "ms", "disseminated sclerosis", "autoimmune neurological disease"},
	"thyroid_disorders":                     {"thyroid problem", "thyroid disease", "hyperthyroidism", "hypothyroidism", "overactive thyroid", "underactive thyroid", "thyroid dysfunction"},
	"pneumothorax":                          {"pneumothorax", "collapsed lung", "punctured lung", "air in chest"},
	"anemia":                                {"anemia", "anaemia", "low blood count", "iron deficiency", "low hemoglobin", "low red blood cells"},
	"leukemia":                              {"leukemia", "leukaemia", "blood cancer", "white blood cell cancer", "acute leukemia", "chronic leukemia"},
	"lymphoma":                              {"lymphoma", "lymph node cancer", "hodgkin lymphoma", "non-hodgkin lymphoma", "lymphatic cancer"},
	"depression":                            {"depression", "major depression", "clinical depression", "depressive disorder", "mood disorder"},
	"anxiety_disorder":                      {"anxiety", "anxiety disorder", "panic disorder", "generalized anxiety", "panic attacks"},
	"glaucoma":                              {"glaucoma", "increased eye pressure", "optic nerve damage", "eye pressure"},
	"cataracts":                             {"cataracts", "cloudy lens", "lens opacity", "eye cloudiness"},
	"otitis_media":                          {"ear infection", "otitis media", "middle ear infection", "acute otitis media"},
	"sinusitis":                             {"sinusitis", "sinus infection", "chronic sinusitis", "sinus inflammation"},
	"strep_throat":                          {"strep throat", "streptococcal pharyngitis", "bacterial throat infection", "throat infection"},
	"endometriosis":                         {"endometriosis", "endometrial tissue outside uterus", "pelvic endometriosis"},
	"ovarian_cysts":                         {"ovarian cyst", "ovarian cysts", "cyst on ovary", "ovarian mass"},
	"benign_prostatic_hyperplasia":          {"enlarged prostate", "bph", "benign prostatic hyperplasia", "prostate enlargement"},
	"testicular_torsion":                    {"testicular torsion", "twisted testicle", "testicular twist", "torsion of testicle"},
	"psoriasis":                             {"psoriasis", "plaque psoriasis", "skin plaques", "scaly skin condition"},
	"eczema":                                {"eczema", "atopic dermatitis", "dermatitis", "skin inflammation"},
	"melanoma":                              {"melanoma", "malignant melanoma", "skin cancer", "deadly skin cancer"},
	"diabetic_ketoacidosis":                 {"diabetic ketoacidosis", "dka", "diabetic coma", "ketoacidosis"},
	"hypoglycemia":                          {"hypoglycemia", "low blood sugar", "glucose deficiency", "sugar crash"},
	"dehydration":                           {"dehydration", "fluid loss", "water deficiency", "volume depletion"},
	"kawasaki_disease":                      {"kawasaki disease", "kawasaki syndrome", "mucocutaneous lymph node syndrome"},
	"croup":                                 {"croup", "laryngotracheobronchitis", "barking cough", "viral croup"},
	"bronchiolitis":                         {"bronchiolitis", "rsv", "respiratory syncytial virus", "small airway infection"},
	"dementia":                              {"dementia", "alzheimer's", "alzheimer's disease", "memory loss", "cognitive decline"},
	"parkinson_disease":                     {"parkinson's", "parkinson's disease", "parkinsonism", "movement disorder"},
	"burns":                                 {"burns", "burn injury", "thermal injury", "fire injury", "scald"},
	"fracture":                              {"fracture", "broken bone", "bone break", "bone fracture", "crack in bone"},
	"hypothermia":                           {"hypothermia", "low body temperature", "cold exposure", "freezing"},
	"heat_stroke":                           {"heat stroke", "heat exhaustion", "hyperthermia", "overheating"},
	"carbon_monoxide_poisoning":             {"carbon monoxide poisoning", "co poisoning", "gas poisoning", "carbon monoxide exposure"},
	"drug_overdose":                         {"overdose", "drug overdose", "poisoning", "toxic ingestion", "medication overdose"},
	"anaphylaxis":                           {"anaphylaxis", "severe allergic reaction", "anaphylactic shock", "allergic emergency"},
}

// synonymToCanonical is built once at startup; lookups are read-only after.
// Keys pass through NormalizeGuess so punctuated surface forms such as
// "alzheimer's" land on the same key an incoming guess produces.
var synonymToCanonical = func() map[string]string {
	m := make(map[string]string)
	for canonical, forms := range diseaseGroups {
		for _, f := range forms {
			m[NormalizeGuess(f)] = canonical
		}
	}
	return m
}()

// ResolveCanonical maps a normalized surface form to its canonical disease
// slug. Exact lookup only; no partial or fuzzy matching.
func ResolveCanonical(normalized string) (string, bool) {
	c, ok := synonymToCanonical[normalized]
	return c, ok
}

// SynonymsFor lists every registered surface form of a canonical slug,
// sorted for stable output.
func SynonymsFor(canonical string) []string {
	var out []string
	for surface, c := range synonymToCanonical {
		if c == canonical {
			out = append(out, surface)
		}
	}
	sort.Strings(out)
	return out
}

// SynonymTableSize reports how many surface forms are registered.
func SynonymTableSize() int { return len(synonymToCanonical) }
