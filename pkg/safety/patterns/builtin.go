package patterns

import "fmt"

// Built-in pattern tables. Each table is compiled once into the default
// registry; a pattern pack may extend, override or disable entries.

var toxicitySpecs = []Spec{
	{Name: "threat", Label: "threat", Severity: SeverityCritical,
		Pattern:     `\bi(?:'ll|\s+will|'m\s+going\s+to|\s+am\s+going\s+to)\s+(?:kill|murder|hurt|shoot|stab|beat)\s+(?:you|him|her|them|everyone)\b`,
		Description: "Threat of violence against a person"},
	{Name: "hate_speech", Label: "hate speech", Severity: SeverityCritical,
		Pattern:     `\b(?:subhuman|(?:should|must)\s+(?:all\s+)?be\s+(?:exterminated|wiped\s+out)|deserve\s+to\s+die)\b`,
		Description: "Dehumanizing or eliminationist language"},
	{Name: "self_harm", Label: "self-harm", Severity: SeverityHigh,
		Pattern:     `\b(?:kill\s+(?:myself|yourself)|commit\s+suicide|end\s+(?:my|your)\s+life)\b`,
		Description: "Self-harm language"},
	{Name: "harassment", Label: "harassment", Severity: SeverityHigh,
		Pattern:     `\byou(?:'re|\s+are)\s+(?:an?\s+|so\s+)?(?:idiot|moron|stupid|worthless|pathetic|loser|useless)\b`,
		Description: "Personal insult directed at the reader"},
	{Name: "violent_instructions", Label: "violence", Severity: SeverityHigh,
		Pattern:     `\bhow\s+to\s+(?:make|build|assemble)\s+(?:a\s+|an\s+)?(?:bomb|explosive|pipe\s+bomb|weapon)s?\b`,
		Description: "Request for instructions to cause physical harm"},
	{Name: "profanity", Label: "profanity", Severity: SeverityMedium,
		Pattern:     `\b(?:fuck(?:ing|er|ed|s)?|shit(?:ty|s)?|bitch(?:es)?|bastards?|assholes?|motherfuck(?:er|ing)?)\b`,
		Description: "Strong profanity"},
	{Name: "mild_profanity", Label: "mild profanity", Severity: SeverityLow,
		Pattern:     `\b(?:damn(?:ed|it)?|crap(?:py)?|piss(?:ed)?)\b`,
		Description: "Mild profanity"},
}

var piiSpecs = []Spec{
	{Name: "email", PIIType: "email", Redaction: "[EMAIL_REDACTED]", Severity: SeverityHigh,
		Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
		Description: "Email address"},
	{Name: "phone", PIIType: "phone", Redaction: "[PHONE_REDACTED]", Severity: SeverityHigh,
		Pattern:     `(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`,
		Description: "Telephone number"},
	{Name: "ssn", PIIType: "ssn", Redaction: "[SSN_REDACTED]", Severity: SeverityCritical,
		Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
		Description: "US social security number"},
	{Name: "credit_card", PIIType: "credit_card", Redaction: "[CREDIT_CARD_REDACTED]", Severity: SeverityCritical,
		Pattern:     `\b(?:\d{4}[\s-]?){3}\d{4}\b`,
		Description: "Payment card number"},
	{Name: "ip_address", PIIType: "ip_address", Redaction: "[IP_ADDRESS_REDACTED]", Severity: SeverityMedium,
		Pattern:     `\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`,
		Description: "IPv4 address"},
	{Name: "aws_access_key", PIIType: "aws_access_key", Redaction: "[AWS_ACCESS_KEY_REDACTED]", Severity: SeverityCritical,
		Pattern: `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`, CaseSensitive: true,
		Description: "AWS access key id"},
	{Name: "private_key", PIIType: "private_key", Redaction: "[PRIVATE_KEY_REDACTED]", Severity: SeverityCritical,
		Pattern: `-----BEGIN (?:[A-Z]+ )?PRIVATE KEY-----(?:[\s\S]*?-----END (?:[A-Z]+ )?PRIVATE KEY-----)?`, CaseSensitive: true,
		Description: "PEM private key block"},
	{Name: "api_key", PIIType: "api_key", Redaction: "[API_KEY_REDACTED]", Severity: SeverityCritical,
		Pattern:     `\b(?:sk|pk|rk)[-_](?:live[-_]|test[-_]|proj[-_])?[A-Za-z0-9]{16,}\b|\b(?:api[_-]?key|access[_-]?token|secret[_-]?key|auth[_-]?token)\s*[:=]\s*["']?[A-Za-z0-9_\-]{16,}`,
		Description: "API key or access token"},
	{Name: "password", PIIType: "password", Redaction: "[PASSWORD_REDACTED]", Severity: SeverityCritical,
		Pattern:     `\b(?:password|passwd|pwd)\s*[:=]\s*\S+`,
		Description: "Password assignment"},
	{Name: "bearer_token", PIIType: "bearer_token", Redaction: "[BEARER_TOKEN_REDACTED]", Severity: SeverityHigh,
		Pattern:     `\bBearer\s+[A-Za-z0-9\-._~+/]{20,}=*`,
		Description: "HTTP bearer credential"},
}

var injectionSpecs = []Spec{
	{Name: "instruction_override", Label: "instruction override", Severity: SeverityCritical,
		Pattern:     `\b(?:ignore|disregard|forget|override|bypass)\s+(?:all\s+)?(?:of\s+)?(?:the\s+|your\s+|any\s+)?(?:previous|prior|above|earlier|preceding|original)\s+(?:instructions?|prompts?|rules|directions|directives|context)\b`,
		Description: "Attempts to override earlier instructions"},
	{Name: "system_prompt_leak", Label: "prompt leak", Severity: SeverityHigh,
		Pattern:     `\b(?:reveal|show|print|repeat|output|display|leak)\s+(?:me\s+)?(?:your|the)\s+(?:system\s+prompt|initial\s+(?:instructions|prompt)|hidden\s+(?:instructions|prompt))\b`,
		Description: "Attempts to extract the system prompt"},
	{Name: "role_hijack", Label: "role hijack", Severity: SeverityHigh,
		Pattern:     `\b(?:act|pretend|behave|roleplay)\s+(?:to\s+be\s+|as\s+if\s+you\s+are\s+|as\s+|like\s+)(?:an?\s+)?(?:hacker|unrestricted|unfiltered|uncensored|evil|malicious|jailbroken)\b|\byou\s+are\s+now\s+(?:an?\s+|the\s+)?(?:unrestricted|unfiltered|uncensored|jailbroken|evil|different)\b`,
		Description: "Attempts to reassign the assistant's role"},
	{Name: "jailbreak", Label: "jailbreak", Severity: SeverityHigh,
		Pattern:     `\b(?:do\s+anything\s+now|developer\s+mode\s+(?:enabled|on)|jailbreak(?:ed|ing)?|without\s+(?:any\s+)?(?:restrictions|limitations|filters|guidelines))\b`,
		Description: "Known jailbreak phrasing"},
	{Name: "dan_persona", Label: "jailbreak", Severity: SeverityHigh,
		Pattern: `\bDAN\b`, CaseSensitive: true,
		Description: "DAN jailbreak persona"},
	{Name: "delimiter_injection", Label: "delimiter injection", Severity: SeverityHigh,
		Pattern:     `<\|(?:im_start|im_end|system|endoftext)\|>|\[/?INST\]|<</?SYS>>`,
		Description: "Chat template control tokens"},
	{Name: "new_instructions", Label: "instruction override", Severity: SeverityMedium,
		Pattern:     `\b(?:from\s+now\s+on,?\s+you\s+(?:are|will|must)|your\s+new\s+(?:instructions|task|role)\s+(?:is|are))\b`,
		Description: "Introduces replacement instructions"},
	{Name: "template_injection", Label: "template injection", Severity: SeverityMedium,
		Pattern:     `\{\{[^{}\n]{1,200}\}\}|\{%[^%\n]{1,200}%\}`,
		Description: "Template expression that may be evaluated downstream"},
}

var biasSpecs = []Spec{
	{Name: "group_generalization", Label: "generalization", Severity: SeverityMedium,
		Pattern:     `\b(?:all|every|most)\s+(?:women|men|girls|boys|muslims|christians|jews|hindus|immigrants|foreigners|asians|africans|mexicans|millennials|boomers|old\s+people|young\s+people|poor\s+people)\s+(?:are|is|have|can't|cannot|should|never|always)\b`,
		Description: "Generalizes a trait to an entire group"},
	{Name: "gender_stereotype", Label: "gender stereotype", Severity: SeverityMedium,
		Pattern:     `\b(?:women|men|girls|boys)\s+(?:are|aren't|are\s+not)\s+(?:naturally\s+|inherently\s+)?(?:better|worse|bad|good|too\s+emotional|(?:not\s+)?(?:suited|meant)\s+for)\b`,
		Description: "Gender stereotype"},
	{Name: "age_bias", Label: "age bias", Severity: SeverityLow,
		Pattern:     `\btoo\s+(?:old|young)\s+(?:to\s+(?:learn|understand|work|lead)|for\s+(?:this|technology|tech))\b`,
		Description: "Age-based assumption"},
	{Name: "absolutist", Label: "absolutist claim", Severity: SeverityLow,
		Pattern:     `\b(?:everyone|everybody|no\s+one|nobody)\s+(?:knows|agrees|believes|thinks|wants)\b`,
		Description: "Claims universal agreement"},
	{Name: "presumptive", Label: "presumptive language", Severity: SeverityLow,
		Pattern:     `\b(?:obviously|it\s+goes\s+without\s+saying|needless\s+to\s+say|any\s+reasonable\s+person)\b`,
		Description: "Presents an opinion as self-evident"},
}

var securitySpecs = []Spec{
	{Name: "destructive_command", Label: "destructive command", Severity: SeverityCritical,
		Pattern:     `\brm\s+-(?:[a-z]*r[a-z]*f|[a-z]*f[a-z]*r)[a-z]*\s+(?:/|~|\*|\$HOME)|\bmkfs(?:\.\w+)?\s+/dev/|\bdd\s+if=\S+\s+of=/dev/[a-z]`,
		Description: "Command that destroys files or devices"},
	{Name: "fork_bomb", Label: "fork bomb", Severity: SeverityCritical,
		Pattern:     `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
		Description: "Shell fork bomb"},
	{Name: "remote_script_exec", Label: "remote execution", Severity: SeverityCritical,
		Pattern:     `\b(?:curl|wget)\s[^|\n]{1,200}\|\s*(?:sudo\s+)?(?:ba|z)?sh\b`,
		Description: "Pipes a downloaded script into a shell"},
	{Name: "sql_destructive", Label: "destructive SQL", Severity: SeverityCritical,
		Pattern:     `\b(?:drop\s+(?:table|database|schema)|truncate\s+table)\s+\w+|\bdelete\s+from\s+\w+\s*;`,
		Description: "SQL statement that removes data"},
	{Name: "sql_injection", Label: "SQL injection", Severity: SeverityHigh,
		Pattern:     `'\s*(?:or|and)\s+'?\w+'?\s*=\s*'?\w+|'\s*;\s*--|\bunion\s+(?:all\s+)?select\b`,
		Description: "SQL injection payload"},
	{Name: "code_execution", Label: "code execution", Severity: SeverityHigh,
		Pattern:     `\b(?:eval|exec|execSync|popen|os\.system|subprocess\.(?:call|run|Popen)|Runtime\.getRuntime\(\)\.exec)\s*\(`,
		Description: "Dynamic code or command execution"},
	{Name: "script_tag", Label: "cross-site scripting", Severity: SeverityHigh,
		Pattern:     `<script\b[^>]*>|\bjavascript:`,
		Description: "Inline script that may execute in a browser"},
	{Name: "sensitive_file", Label: "sensitive file access", Severity: SeverityHigh,
		Pattern:     `/etc/(?:passwd|shadow|sudoers)\b|~/\.ssh/(?:id_\w+|authorized_keys)`,
		Description: "References a sensitive system file"},
	{Name: "event_handler", Label: "cross-site scripting", Severity: SeverityMedium,
		Pattern:     `<[a-z]+[^>]*\bon(?:error|load|click|mouseover|focus)\s*=`,
		Description: "HTML event handler attribute"},
	{Name: "command_substitution", Label: "command substitution", Severity: SeverityMedium,
		Pattern:     `\$\([^)\n]{1,200}\)|` + "`" + `\s*(?:rm|curl|wget|cat|bash|sh|nc|chmod)\b[^` + "`" + `\n]{0,200}` + "`",
		Description: "Shell command substitution"},
	{Name: "path_traversal", Label: "path traversal", Severity: SeverityMedium,
		Pattern:     `(?:\.\./){2,}|(?:\.\.\\){2,}`,
		Description: "Relative path escaping its directory"},
	{Name: "privilege_escalation", Label: "privilege escalation", Severity: SeverityMedium,
		Pattern:     `\bsudo\s+(?:su\b|-i\b|-s\b)|\bchmod\s+(?:-R\s+)?777\b`,
		Description: "Raises privileges or opens permissions"},
}

var driftSpecs = []Spec{
	{Name: "by_the_way", Pattern: `\bby\s+the\s+way\b`, Description: "Topic pivot"},
	{Name: "forget_about", Pattern: `\bforget\s+about\b`, Description: "Abandons the current topic"},
	{Name: "instead_of", Pattern: `\binstead\s+of\b`, Description: "Redirects the request"},
	{Name: "on_another_note", Pattern: `\bon\s+(?:a|another)\s+(?:different\s+|unrelated\s+)?(?:note|topic)\b`, Description: "Topic pivot"},
	{Name: "changing_subject", Pattern: `\b(?:changing|change)\s+the\s+subject\b`, Description: "Topic pivot"},
}

func builtinEntries() []Entry {
	tables := []struct {
		category Category
		specs    []Spec
	}{
		{CategoryToxicity, toxicitySpecs},
		{CategoryPII, piiSpecs},
		{CategoryInjection, injectionSpecs},
		{CategoryBias, biasSpecs},
		{CategorySecurity, securitySpecs},
		{CategoryDrift, driftSpecs},
	}

	var out []Entry
	for _, t := range tables {
		for _, s := range t.specs {
			s.Category = t.category
			e, err := s.Compile()
			if err != nil {
				panic(fmt.Sprintf("patterns: builtin %s: %v", s.Name, err))
			}
			out = append(out, e)
		}
	}
	return out
}
