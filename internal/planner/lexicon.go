package planner

// Word lists driving the rule-based extractor. All entries are lowercase;
// matching happens on normalized action text.

// commonSpells is the curated list of spells players name most often.
// Detection also works through cast-verb capture, so this list only needs to
// cover the high-frequency names.
var commonSpells = []string{
	"fireball",
	"magic missile",
	"shield",
	"mage armor",
	"cure wounds",
	"healing word",
	"eldritch blast",
	"fire bolt",
	"sacred flame",
	"guiding bolt",
	"burning hands",
	"thunderwave",
	"sleep",
	"charm person",
	"hold person",
	"detect magic",
	"dispel magic",
	"counterspell",
	"misty step",
	"lightning bolt",
	"bless",
}

// canonicalSkills lists the 18 skills by their rulebook names.
var canonicalSkills = []string{
	"acrobatics",
	"animal handling",
	"arcana",
	"athletics",
	"deception",
	"history",
	"insight",
	"intimidation",
	"investigation",
	"medicine",
	"nature",
	"perception",
	"performance",
	"persuasion",
	"religion",
	"sleight of hand",
	"stealth",
	"survival",
}

// commonCreatures covers creatures players name without the creature being in
// the initiative order yet. Combatant names from the game state are checked
// first and win ties.
var commonCreatures = []string{
	"goblin",
	"hobgoblin",
	"bugbear",
	"kobold",
	"orc",
	"skeleton",
	"zombie",
	"ghoul",
	"bandit",
	"cultist",
	"wolf",
	"dire wolf",
	"giant spider",
	"spider",
	"troll",
	"ogre",
	"gnoll",
	"owlbear",
	"mimic",
	"dragon",
	"lich",
	"vampire",
}

var combatVerbs = []string{
	"attack", "attacks", "attacking",
	"strike", "strikes", "striking",
	"hit", "hits", "hitting",
	"fight", "fights", "fighting",
	"swing", "swings", "swinging",
	"shoot", "shoots", "shooting",
	"stab", "stabs", "stabbing",
	"slash", "slashes", "slashing",
	"charge", "charges", "charging",
}

var socialVerbs = []string{
	"talk", "talks", "talking",
	"speak", "speaks", "speaking",
	"say", "says", "saying",
	"tell", "tells", "telling",
	"ask", "asks", "asking",
	"persuade", "persuades", "persuading",
	"convince", "convinces", "convincing",
	"negotiate", "negotiates", "negotiating",
	"greet", "greets", "greeting",
	"bargain", "bargains", "bargaining",
}

var explorationVerbs = []string{
	"search", "searches", "searching",
	"explore", "explores", "exploring",
	"look", "looks", "looking",
	"examine", "examines", "examining",
	"inspect", "inspects", "inspecting",
	"open", "opens", "opening",
	"enter", "enters", "entering",
	"climb", "climbs", "climbing",
	"listen", "listens", "listening",
	"scout", "scouts", "scouting",
}

// rulesPhrases trigger an explicit rules lookup.
var rulesPhrases = []string{
	"what are the rules",
	"what is the rule",
	"rules for",
	"how does",
	"how do",
	"can i",
	"am i allowed",
	"is it legal",
}
