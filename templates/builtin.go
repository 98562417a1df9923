package templates

import "slices"

var builtin = []string{
	`Record ${file_num} of ${folder_name}
Reference: ${uuid}
Generated: ${timestamp}

${quote}

Keyword: ${technical}
Magic number: ${magic_number}
`,
	`=== ${folder_name} / ${file_num} ===

${art}

Did you know? ${fact}
-- id ${uuid}
`,
	`# ${technical} notes

Entry ${file_num} was written at ${timestamp}.
Today's joke: ${joke}

Checksum seed: ${magic_number}
`,
	`FOLDER=${folder_name}
FILE=${file_num}
UUID=${uuid}
TIMESTAMP=${timestamp}
MAGIC=${magic_number}
QUOTE=${quote}
`,
	`Dear reader,

this is file ${file_num}, filed under ${folder_name}.
${fact}

${art}

Regards,
the ${technical} team (${uuid})
`,
	`[${timestamp}] ${technical}: processing item ${file_num}
[${timestamp}] ${technical}: payload ${magic_number}
[${timestamp}] ${technical}: note "${quote}"
[${timestamp}] ${technical}: done
`,
	`Q: What do you call file ${file_num} in ${folder_name}?
A: ${joke}

Tracking number ${uuid}, cost $$${magic_number}.
`,
	`${art}

  ${quote}

  folder   ${folder_name}
  file     ${file_num}
  created  ${timestamp}
`,
	`{
  "folder": "${folder_name}",
  "file": "${file_num}",
  "id": "${uuid}",
  "term": "${technical}",
  "fact": "${fact}"
}
`,
	`Inventory slip ${magic_number}

Item: ${technical}
Location: ${folder_name}
Position: ${file_num}
Comment: ${joke}
`,
	`Chapter ${file_num}

${quote}

${fact}

(${folder_name}, ${timestamp})
`,
	`-----BEGIN ${technical} BLOCK-----
${uuid}
${magic_number}
${art}
-----END ${technical} BLOCK-----
`,
}

// Builtin returns the templates shipped with the generator.
func Builtin() []string {
	return slices.Clone(builtin)
}
