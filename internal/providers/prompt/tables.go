package prompt

const qualityAnchor = "reference photo hair edit"

type keywordMapping struct {
	keywords []string
	value    string
}

// styleKeywords is matched against the lowercased request; order is preserved in the output.
var styleKeywords = []keywordMapping{
	{keywords: []string{"bob", "단발"}, value: "precise chin-length bob cut"},
	{keywords: []string{"short", "pixie", "쇼트"}, value: "clean short haircut silhouette"},
	{keywords: []string{"layer", "layered", "레이어드"}, value: "layered cut with textured ends and movement"},
	{keywords: []string{"hush", "허쉬"}, value: "korean hush cut silhouette"},
	{keywords: []string{"see through bang", "see-through bang", "시스루 뱅"}, value: "soft see-through bangs"},
	{keywords: []string{"bang", "fringe", "뱅"}, value: "natural face-framing bangs"},
	{keywords: []string{"perm", "wave", "펌"}, value: "soft wavy perm texture"},
	{keywords: []string{"straight", "직모"}, value: "sleek straight hair texture"},
	{keywords: []string{"c curl", "c-curl", "시커"}, value: "inward C-curl at the hair ends"},
	{keywords: []string{"s curl", "s-curl", "에스커"}, value: "defined S-curl flow"},
	{keywords: []string{"tassel", "태슬컷", "태슬 컷"}, value: "Tassel Cut with clean one-length line"},
	{keywords: []string{"leaf", "리프컷", "리프 컷"}, value: "Leaf Cut with semi-long layers flowing back"},
	{keywords: []string{"guile", "가일컷", "가일 컷"}, value: "Guile Cut with clean side-part volume"},
}

var colorKeywords = []keywordMapping{
	{keywords: []string{"ash brown", "ash", "애쉬"}, value: "cool ash brown hair color"},
	{keywords: []string{"black", "검정"}, value: "natural black hair color"},
	{keywords: []string{"brown", "브라운"}, value: "neutral medium brown hair color"},
	{keywords: []string{"blonde", "금발"}, value: "soft blonde hair color"},
	{keywords: []string{"red", "레드"}, value: "deep red hair color"},
}

var lengthOptions = map[string]string{
	"short":  "short length",
	"medium": "medium length",
	"long":   "long length",
}

var styleOptions = map[string]string{
	"straight": "sleek straight hair texture",
	"perm":     "soft natural perm with controlled volume",
	"bangs":    "face-framing bangs with clean separation",
	"layered":  "layered cut with light movement",
}

var colorOptions = map[string]string{
	"black":  "natural black hair color",
	"brown":  "neutral medium brown hair color",
	"ash":    "cool ash brown hair color",
	"blonde": "soft blonde hair color",
	"red":    "deep red hair color",
}

// hairOnlyConstraints are sent to both agents as hard constraints.
var hairOnlyConstraints = []string{
	"edit the provided reference photo",
	"same person as the reference photo",
	"change only the hairstyle and hair color",
	"do not change face, skin tone, ethnicity, age, or gender",
	"keep eyes, nose, lips, jawline, and face shape unchanged",
	"keep expression, pose, camera angle, and framing unchanged",
	"keep background and clothing unchanged",
	"keep facial expression, pose, and camera framing unchanged",
}

// hairKeywords selects the comma-separated segments of a model prompt that describe hair.
var hairKeywords = []string{
	"hairstyle", "hair", "cut", "bang", "perm", "wave", "curl", "layer", "bob",
	"tassel", "hush", "leaf", "guile", "texture", "volume", "part", "color",
	"black", "brown", "ash", "blonde", "red", "short", "medium", "long",
}

const researchInstruction = `You are the hairstyle prompt-research agent.
Use a Deep Research workflow to analyze the user's request and the provided reference image together.

Return JSON only with this shape:
{
  "report": string,
  "summary": string,
  "hairstyleDetails": string[],
  "colorDirection": string,
  "textureDirection": string,
  "structureNotes": string[],
  "riskNotes": string[],
  "references": string[]
}

Research requirements:
- Perform deep research reasoning: infer explicit and implicit hairstyle intent, then validate terminology consistency.
- Extract concrete hairstyle attributes: length, layering, bangs, parting, curl/wave, volume, silhouette, and named style terms.
- Preserve celebrity/style names if present and convert Korean requests into clear English hairstyle descriptors.
- If request and reference conflict, record the conflict in "riskNotes".
- Write a research report in "report" (multi-paragraph, structured, concrete).
- Add short evidence-style research summary in "summary".
- If available, include source URLs or domains in "references".

Hard constraints:
- Keep the same person identity (face and appearance).
- No ethnicity transformation.
- Keep a frontal face photo.
- Keep white background.`

const composerInstruction = `You are the hairstyle prompt-composer agent.
You must use the Deep Research result and produce the final prompt for the image-generation agent.

Return JSON only with this shape:
{
  "productRequirements": string,
  "prompt": string
}

Prompt requirements:
- Write one production-ready English prompt focused on hairstyle transformation.
- Do not compress to one line. The prompt must be multi-line with sections and bullet points.
- Use the deep-research report as mandatory evidence.
- Include that this is the same person from the reference image.
- Explicitly enforce: no ethnicity change, frontal face photo, white background.
- Change only hairstyle and hair color. Keep face, skin tone, age, and gender unchanged.`
