package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in dataset: question trees for the supported
// project types, rule tables for California and Texas, fee and review
// timeline tables, and the permit-package checklist templates.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultYAML), &cfg); err != nil {
		panic(fmt.Sprintf("config: built-in dataset does not parse: %v", err))
	}
	cfg.applyDefaults()
	return &cfg
}

const defaultYAML = `session:
  ttl_minutes: 60
  sweep_minutes: 5

questions:
  fence:
    - id: location
      text: "Where will the fence go?"
      type: select
      required: true
      options:
        - {value: front-yard, label: "Front yard"}
        - {value: back-yard, label: "Back yard"}
        - {value: side-yard, label: "Side yard"}
    - id: height
      text: "How tall will the fence be, in feet?"
      type: number
      required: true
      validation: {min: 1, max: 20}
    - id: retaining
      text: "Will any part of the fence hold back soil (act as a retaining wall)?"
      type: yes-no
      required: true
    - id: material
      text: "What material will the fence be?"
      type: select
      required: true
      options:
        - {value: wood, label: "Wood"}
        - {value: vinyl, label: "Vinyl"}
        - {value: chain-link, label: "Chain link"}
        - {value: masonry, label: "Masonry / block"}
        - {value: wrought-iron, label: "Wrought iron"}
    - id: on-boundary
      text: "Is the fence on a shared property line?"
      type: yes-no
      required: false

  deck:
    - id: attached
      text: "Will the deck attach to the house?"
      type: yes-no
      required: true
    - id: ledger-flashing
      text: "Will the ledger connection be flashed into the house framing?"
      type: yes-no
      required: true
      show_if: {question: attached, equals: "yes"}
    - id: size
      text: "How big is the deck, in square feet?"
      type: number
      required: true
      validation: {min: 1, max: 5000}
    - id: height
      text: "How high is the deck surface above grade, in inches?"
      type: number
      required: true
      validation: {min: 0, max: 300}
    - id: second-floor
      text: "Is this a second-story (elevated) deck?"
      type: yes-no
      required: true
    - id: roof
      text: "Will the deck carry a roof or pergola?"
      type: yes-no
      required: true

  bathroom-remodel:
    - id: scope
      text: "What does the remodel include?"
      type: multi-select
      required: true
      options:
        - {value: cosmetic, label: "Cosmetic only (paint, tile, vanity)"}
        - {value: fixtures, label: "Replacing fixtures in place"}
        - {value: plumbing-relocation, label: "Moving plumbing"}
        - {value: layout-change, label: "Changing the layout"}
        - {value: wall-removal, label: "Removing a wall"}
        - {value: addition, label: "Expanding the footprint"}
    - id: wall-type
      text: "What kind of wall is being removed or moved?"
      type: select
      required: true
      show_if: {question: scope, any_of: [wall-removal, layout-change]}
      options:
        - {value: non-bearing, label: "Non-bearing partition"}
        - {value: load-bearing, label: "Load-bearing wall"}
        - {value: unknown, label: "Not sure"}
    - id: electrical
      text: "Will electrical circuits be added or moved?"
      type: yes-no
      required: true

  kitchen-remodel:
    - id: scope
      text: "What does the remodel include?"
      type: multi-select
      required: true
      options:
        - {value: cosmetic, label: "Cosmetic only (paint, counters, cabinets)"}
        - {value: appliances, label: "Replacing appliances in place"}
        - {value: plumbing-relocation, label: "Moving plumbing"}
        - {value: layout-change, label: "Changing the layout"}
        - {value: wall-removal, label: "Removing a wall"}
    - id: wall-type
      text: "What kind of wall is being removed or moved?"
      type: select
      required: true
      show_if: {question: scope, any_of: [wall-removal, layout-change]}
      options:
        - {value: non-bearing, label: "Non-bearing partition"}
        - {value: load-bearing, label: "Load-bearing wall"}
        - {value: unknown, label: "Not sure"}
    - id: gas-line
      text: "Will a gas line be added, moved, or capped?"
      type: yes-no
      required: true

  hvac-replacement:
    - id: replacement-type
      text: "What kind of replacement is this?"
      type: select
      required: true
      options:
        - {value: like-for-like, label: "Same system, same location"}
        - {value: upsize, label: "Larger capacity system"}
        - {value: relocation, label: "Moving the equipment"}
        - {value: new-system, label: "First system in this home"}
    - id: fuel-change
      text: "Are you switching fuel type (for example gas to electric)?"
      type: yes-no
      required: true
    - id: ductwork
      text: "Will ductwork be added or modified?"
      type: yes-no
      required: true

  water-heater:
    - id: replacement-type
      text: "What kind of replacement is this?"
      type: select
      required: true
      options:
        - {value: same-type-same-location, label: "Same type, same location"}
        - {value: tankless-conversion, label: "Converting to tankless"}
        - {value: relocation, label: "Moving the water heater"}
    - id: capacity
      text: "What tank capacity, in gallons?"
      type: number
      required: false
      validation: {min: 0, max: 200}
      show_if: {question: replacement-type, equals: same-type-same-location}
    - id: expansion-tank
      text: "Will an expansion tank be installed?"
      type: yes-no
      required: true

rules:
  global_triggers:
    - retaining
    - cantilever
    - hillside
    - seismic
  states:
    CA:
      county_notes:
        "Los Angeles": "LADBS reviews structural calculations in-house; allow extra review time."
        "San Francisco": "SF DBI requires a site permit addendum for structural work on shared walls."
      projects:
        deck:
          predicates:
            - reason: "Second-story decks require engineered plans"
              when:
                - {question: second-floor, equals: "yes"}
              confidence: high
              engineering_type: full
              cost_key: elevated_deck
              requirements:
                - "Stamped framing and footing plans"
                - "Lateral load attachment detail"
            - reason: "Deck surfaces above 8 feet need engineered calculations"
              when:
                - {question: height, gte: 96}
              confidence: medium
              engineering_type: calculations
              cost_key: tall_deck
            - reason: "Large attached decks transfer load into the dwelling"
              when:
                - {question: size, gt: 400}
                - {question: attached, equals: "yes"}
              confidence: medium
              engineering_type: calculations
              cost_key: large_attached_deck
          triggers:
            - when: {question: roof, equals: "yes"}
              reason: "Roof structures over decks add dead and snow load"
              cost_key: roofed_deck
              engineering_type: calculations
              requirements:
                - "Roof framing plan"
          cost_table:
            elevated_deck: {min: 2000, max: 3500}
            tall_deck: {min: 1200, max: 2500}
            large_attached_deck: {min: 1000, max: 2000}
            roofed_deck: {min: 1500, max: 2800}
        fence:
          predicates:
            - reason: "Fences over 8 feet are engineered structures in California"
              when:
                - {question: height, gt: 8}
              confidence: medium
              engineering_type: calculations
              cost_key: tall_fence
          triggers:
            - when: {question: material, equals: masonry}
              reason: "Masonry fences need footing and reinforcement design"
              cost_key: masonry_fence
              engineering_type: calculations
          cost_table:
            tall_fence: {min: 800, max: 1500}
            masonry_fence: {min: 900, max: 1800}
        bathroom-remodel:
          triggers:
            - when: {question: wall-type, equals: load-bearing}
              reason: "Removing a load-bearing wall requires beam sizing by a licensed engineer"
              cost_key: load_bearing_wall
              engineering_type: full
              requirements:
                - "Beam and post calculations"
                - "Temporary shoring plan"
            - when: {question: wall-type, equals: unknown}
              reason: "Unknown wall type needs an engineering assessment before demolition"
              confidence: medium
              cost_key: unknown_wall
              engineering_type: assessment
            - when: {question: scope, contains: addition}
              reason: "Expanding the footprint changes foundation and framing loads"
              cost_key: footprint_expansion
              engineering_type: full
          cost_table:
            load_bearing_wall: {min: 1500, max: 3000}
            unknown_wall: {min: 400, max: 900}
            footprint_expansion: {min: 2500, max: 5000}
        kitchen-remodel:
          triggers:
            - when: {question: wall-type, equals: load-bearing}
              reason: "Removing a load-bearing wall requires beam sizing by a licensed engineer"
              cost_key: load_bearing_wall
              engineering_type: full
            - when: {question: wall-type, equals: unknown}
              reason: "Unknown wall type needs an engineering assessment before demolition"
              confidence: medium
              cost_key: unknown_wall
              engineering_type: assessment
          cost_table:
            load_bearing_wall: {min: 1500, max: 3000}
            unknown_wall: {min: 400, max: 900}
    TX:
      county_notes:
        "Travis": "Unincorporated Travis County only reviews structures over 1,000 sq ft; city limits differ."
      projects:
        deck:
          predicates:
            - reason: "Second-story decks require engineered plans"
              when:
                - {question: second-floor, equals: "yes"}
              confidence: high
              engineering_type: full
              cost_key: elevated_deck
          cost_table:
            elevated_deck: {min: 1500, max: 2800}
        bathroom-remodel:
          triggers:
            - when: {question: wall-type, equals: load-bearing}
              reason: "Removing a load-bearing wall requires beam sizing by a licensed engineer"
              cost_key: load_bearing_wall
              engineering_type: full
          cost_table:
            load_bearing_wall: {min: 1200, max: 2400}

fees:
  none: {min: 0, max: 0}
  express: {min: 150, max: 400}
  standard: {min: 400, max: 1200}
  complex: {min: 1200, max: 3000}

review_timelines:
  none: 0
  express: 3
  standard: 15
  complex: 30

checklist:
  - id: site-plan
    title: "Site plan"
    description: "A drawing of the lot showing the project location and setbacks."
    questions:
      - id: property-lines
        prompt: "Are your property lines marked on the drawing?"
        quick_replies:
          - {label: "Yes", value: "yes"}
          - {label: "No", value: "no"}
          - {label: "Not sure", value: "unknown"}
        follow_ups:
          unknown: "No problem - your county GIS parcel viewer usually has lot dimensions you can trace."
      - id: dimensions
        prompt: "Does the drawing include distances from the project to each property line?"
        quick_replies:
          - {label: "Yes", value: "yes"}
          - {label: "No", value: "no"}
        follow_ups:
          "no": "Add the setback distances before submitting; reviewers reject site plans without them."
  - id: construction-drawings
    title: "Construction drawings"
    description: "Plans showing dimensions, materials, and connection details."
    questions:
      - id: source
        prompt: "Where are your drawings coming from?"
        quick_replies:
          - {label: "Architect or designer", value: "professional"}
          - {label: "Drawing them myself", value: "diy"}
          - {label: "Purchased plans", value: "purchased"}
          - {label: "Can you explain?", value: "explain"}
        follow_ups:
          explain: "Most counties accept hand drawings for small projects as long as they are to scale and dimensioned."
      - id: to-scale
        prompt: "Are the drawings to scale with dimensions labeled?"
        quick_replies:
          - {label: "Yes", value: "yes"}
          - {label: "No", value: "no"}
  - id: photos
    title: "Site photos"
    description: "Current photos of the work area from a few angles."
    photo_only: true
  - id: contractor-info
    title: "Contractor information"
    description: "License and insurance details if a contractor pulls the permit."
    questions:
      - id: licensed
        prompt: "Is a licensed contractor doing the work?"
        quick_replies:
          - {label: "Yes", value: "yes"}
          - {label: "No, owner-builder", value: "no"}
          - {label: "Not sure yet", value: "unknown"}
        follow_ups:
          unknown: "You can file as owner-builder now and add a contractor later in most jurisdictions."
      - id: license-number
        prompt: "Do you have the contractor's license number on hand?"
        quick_replies:
          - {label: "Yes", value: "yes"}
          - {label: "No", value: "no"}
`
