package notation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mbsekit/flexo-bridge/internal/model"
)

// EncodeOptions controls graph serialization. Minimal drops derived
// properties (qualifiedName) that the repository can recompute.
type EncodeOptions struct {
	Minimal bool
}

type encoder struct {
	opts     EncodeOptions
	elements []model.Element
	// names maps both simple and qualified names of document-local
	// definitions to their element ids, for heritage/typing resolution.
	names map[string]string
}

// Encode serializes the model into a repository element graph: a root
// Namespace, one element per declaration, and membership/typing/heritage
// relationship elements gluing them together. Every element gets a fresh
// UUID.
func Encode(m *Model, opts EncodeOptions) []model.Element {
	e := &encoder{opts: opts, names: make(map[string]string)}

	root := model.Element{
		model.KeyID:   uuid.NewString(),
		model.KeyType: model.TypeNamespace,
	}
	e.elements = append(e.elements, root)

	// First pass: assign ids to every named declaration so forward
	// references resolve.
	for _, pkg := range m.Packages {
		e.assignIDs(pkg, "")
	}

	for _, pkg := range m.Packages {
		e.encodePackage(pkg, root, "")
	}

	return e.elements
}

func (e *encoder) assignIDs(member Member, prefix string) {
	qualified := qualify(prefix, member.memberName())
	id := uuid.NewString()
	e.names[qualified] = id
	if _, taken := e.names[member.memberName()]; !taken {
		e.names[member.memberName()] = id
	}

	switch m := member.(type) {
	case *Package:
		for _, child := range m.Members {
			e.assignIDs(child, qualified)
		}
	case *PartDef:
		for _, child := range m.Members {
			e.assignIDs(child, qualified)
		}
	case *PartUsage:
		for _, child := range m.Members {
			e.assignIDs(child, qualified)
		}
	}
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "::" + name
}

func (e *encoder) lookup(name string) string {
	return e.names[name]
}

func (e *encoder) newElement(typ, name, qualified string) model.Element {
	el := model.Element{
		model.KeyID:   e.lookup(qualified),
		model.KeyType: typ,
	}
	if name != "" {
		el["name"] = name
		if !e.opts.Minimal {
			el["qualifiedName"] = qualified
		}
	}
	e.elements = append(e.elements, el)
	return el
}

// own links member into owner through a membership relationship and marks
// the member as owned, which keeps it out of root-namespace detection.
func (e *encoder) own(membershipType string, owner, member model.Element) {
	rel := model.Element{
		model.KeyID:           uuid.NewString(),
		model.KeyType:         membershipType,
		"memberElement":       model.Ref(model.ID(member)),
		"ownedRelatedElement": []any{model.Ref(model.ID(member))},
	}
	if membershipType == model.TypeFeatureMembership {
		rel["featuringType"] = model.Ref(model.ID(owner))
	} else {
		rel["owningNamespace"] = model.Ref(model.ID(owner))
	}
	e.elements = append(e.elements, rel)

	member["owningRelationship"] = model.Ref(model.ID(rel))
}

// encodeDoc emits a Documentation element owned by its annotated element.
func (e *encoder) encodeDoc(owner model.Element, body string) {
	if body == "" {
		return
	}
	docEl := model.Element{
		model.KeyID:   uuid.NewString(),
		model.KeyType: model.TypeDocumentation,
		"body":        body,
	}
	e.elements = append(e.elements, docEl)
	e.own(model.TypeOwningMembership, owner, docEl)
}

func (e *encoder) encodePackage(pkg *Package, owner model.Element, prefix string) {
	qualified := qualify(prefix, pkg.Name)
	el := e.newElement(model.TypePackage, pkg.Name, qualified)
	e.own(model.TypeOwningMembership, owner, el)
	e.encodeDoc(el, pkg.Doc)

	for _, imp := range pkg.Imports {
		impEl := model.Element{
			model.KeyID:             uuid.NewString(),
			model.KeyType:           model.TypeImport,
			"importedName":          imp.Target,
			"isImportAll":           imp.Wildcard,
			"importOwningNamespace": model.Ref(model.ID(el)),
		}
		e.elements = append(e.elements, impEl)
	}

	for _, member := range pkg.Members {
		e.encodeMember(member, el, qualified)
	}
}

func (e *encoder) encodeMember(member Member, owner model.Element, prefix string) {
	switch m := member.(type) {
	case *Package:
		e.encodePackage(m, owner, prefix)
	case *PartDef:
		e.encodePartDef(m, owner, prefix)
	case *AttrDef:
		qualified := qualify(prefix, m.Name)
		el := e.newElement(model.TypeAttributeDefinition, m.Name, qualified)
		e.own(model.TypeOwningMembership, owner, el)
		e.encodeHeritage(el, m.Specializes)
	case *PartUsage:
		e.encodePartUsage(m, owner, prefix)
	case *AttrUsage:
		e.encodeAttrUsage(m, owner, prefix)
	}
}

func (e *encoder) encodePartDef(def *PartDef, owner model.Element, prefix string) {
	qualified := qualify(prefix, def.Name)
	el := e.newElement(model.TypePartDefinition, def.Name, qualified)
	e.own(model.TypeOwningMembership, owner, el)
	e.encodeDoc(el, def.Doc)
	e.encodeHeritage(el, def.Specializes)

	for _, member := range def.Members {
		e.encodeMember(member, el, qualified)
	}
}

// encodeHeritage emits a Subclassification per resolvable target.
// Targets defined outside the document (library imports) stay textual in
// declaredHeritage so the round trip does not lose them; a dangling ref
// would only be pruned by the cleaner on the way back.
func (e *encoder) encodeHeritage(el model.Element, targets []string) {
	var unresolved []any
	for _, target := range targets {
		targetID := e.lookup(target)
		if targetID == "" {
			unresolved = append(unresolved, target)
			continue
		}
		e.elements = append(e.elements, model.Element{
			model.KeyID:   uuid.NewString(),
			model.KeyType: model.TypeSubclassification,
			"specific":    model.Ref(model.ID(el)),
			"general":     model.Ref(targetID),
		})
	}
	if len(unresolved) > 0 {
		el["declaredHeritage"] = unresolved
	}
}

func (e *encoder) encodePartUsage(usage *PartUsage, owner model.Element, prefix string) {
	qualified := qualify(prefix, usage.Name)
	el := e.newElement(model.TypePartUsage, usage.Name, qualified)
	e.own(model.TypeFeatureMembership, owner, el)
	e.encodeTyping(el, usage.TypeName)
	encodeMultiplicity(el, usage.Multiplicity)

	for _, member := range usage.Members {
		e.encodeMember(member, el, qualified)
	}
}

func (e *encoder) encodeAttrUsage(usage *AttrUsage, owner model.Element, prefix string) {
	qualified := qualify(prefix, usage.Name)
	el := e.newElement(model.TypeAttributeUsage, usage.Name, qualified)
	e.own(model.TypeFeatureMembership, owner, el)
	e.encodeTyping(el, usage.TypeName)
	encodeMultiplicity(el, usage.Multiplicity)

	if usage.Value != nil {
		lit := model.Element{
			model.KeyID:   uuid.NewString(),
			model.KeyType: literalType(usage.Value),
			"value":       literalValue(usage.Value),
		}
		e.elements = append(e.elements, lit)

		e.elements = append(e.elements, model.Element{
			model.KeyID:        uuid.NewString(),
			model.KeyType:      model.TypeFeatureValue,
			"featureWithValue": model.Ref(model.ID(el)),
			"value":            model.Ref(model.ID(lit)),
		})
	}
}

func (e *encoder) encodeTyping(el model.Element, typeName string) {
	if typeName == "" {
		return
	}
	targetID := e.lookup(typeName)
	if targetID == "" {
		el["declaredTypeName"] = typeName
		return
	}
	e.elements = append(e.elements, model.Element{
		model.KeyID:    uuid.NewString(),
		model.KeyType:  model.TypeFeatureTyping,
		"typedFeature": model.Ref(model.ID(el)),
		"type":         model.Ref(targetID),
	})
}

func encodeMultiplicity(el model.Element, mult *Multiplicity) {
	if mult == nil {
		return
	}
	el["lowerBound"] = mult.Lower
	el["upperBound"] = mult.Upper
}

func literalType(lit *Literal) string {
	switch lit.Kind {
	case LiteralString:
		return model.TypeLiteralString
	case LiteralBoolean:
		return model.TypeLiteralBoolean
	default:
		if strings.Contains(lit.Text, ".") {
			return model.TypeLiteralRational
		}
		return model.TypeLiteralInteger
	}
}

func literalValue(lit *Literal) any {
	switch lit.Kind {
	case LiteralBoolean:
		return lit.Text == kwTrue
	default:
		return lit.Text
	}
}

type decoder struct {
	byID    map[string]model.Element
	order   map[string]int
	members map[string][]string
	typing  map[string]string
	general map[string][]string
	values  map[string]string
	imports map[string][]*Import
}

// Decode rebuilds the AST from an element graph, typically after cleaning a
// repository snapshot. Unknown element kinds are skipped; relationships the
// decoder understands are folded back into declarations.
func Decode(elements []model.Element) (*Model, error) {
	d := &decoder{
		byID:    make(map[string]model.Element),
		order:   make(map[string]int),
		members: make(map[string][]string),
		typing:  make(map[string]string),
		general: make(map[string][]string),
		values:  make(map[string]string),
		imports: make(map[string][]*Import),
	}

	var root model.Element
	for i, el := range elements {
		if id := model.ID(el); id != "" {
			d.byID[id] = el
			d.order[id] = i
		}
		if root == nil && model.IsRootNamespace(el) {
			root = el
		}
	}
	if root == nil {
		return nil, model.ErrNoRootNamespace
	}

	for _, el := range elements {
		t := model.Type(el)
		switch {
		case model.MembershipTypes[t]:
			owner := firstIDOf(el, "featuringType", "owningType", "owningNamespace", "membershipOwningNamespace")
			member := firstIDOf(el, "memberElement", "feature", "ownedRelatedElement")
			if owner != "" && member != "" {
				d.members[owner] = append(d.members[owner], member)
			}
		case t == model.TypeFeatureTyping || t == model.TypeTypeFeaturing:
			feature := firstIDOf(el, "typedFeature", "feature")
			typ := firstIDOf(el, "type", "featuringType", "general")
			if feature != "" && typ != "" {
				d.typing[feature] = typ
			}
		case t == model.TypeSubclassification || t == model.TypeSpecialization:
			specific := firstIDOf(el, "specific")
			general := firstIDOf(el, "general")
			if specific != "" && general != "" {
				d.general[specific] = append(d.general[specific], general)
			}
		case t == model.TypeFeatureValue:
			feature := firstIDOf(el, "featureWithValue")
			value := firstIDOf(el, "value")
			if feature != "" && value != "" {
				d.values[feature] = value
			}
		case t == model.TypeImport:
			owner := firstIDOf(el, "importOwningNamespace")
			name, _ := el["importedName"].(string)
			if owner != "" && name != "" {
				wildcard, _ := el["isImportAll"].(bool)
				d.imports[owner] = append(d.imports[owner], &Import{Target: name, Wildcard: wildcard})
			}
		}
	}

	m := &Model{}
	for _, memberID := range d.orderedMembers(model.ID(root)) {
		el, ok := d.byID[memberID]
		if !ok {
			continue
		}
		if model.Type(el) == model.TypePackage {
			m.Packages = append(m.Packages, d.decodePackage(el))
		}
	}

	if len(m.Packages) == 0 {
		return nil, fmt.Errorf("no packages under root namespace %s", model.ID(root))
	}
	return m, nil
}

// orderedMembers returns owned member ids in document order.
func (d *decoder) orderedMembers(ownerID string) []string {
	ids := append([]string(nil), d.members[ownerID]...)
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && d.order[ids[j]] < d.order[ids[j-1]]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

func (d *decoder) decodePackage(el model.Element) *Package {
	pkg := &Package{Name: elementName(el)}
	pkg.Imports = d.imports[model.ID(el)]

	for _, memberID := range d.orderedMembers(model.ID(el)) {
		child, ok := d.byID[memberID]
		if !ok {
			continue
		}
		if body, ok := docBody(child); ok {
			pkg.Doc = body
			continue
		}
		if member := d.decodeMember(child); member != nil {
			pkg.Members = append(pkg.Members, member)
		}
	}
	return pkg
}

func docBody(el model.Element) (string, bool) {
	if model.Type(el) != model.TypeDocumentation {
		return "", false
	}
	body, _ := el["body"].(string)
	return body, body != ""
}

func (d *decoder) decodeMember(el model.Element) Member {
	switch model.Type(el) {
	case model.TypePackage:
		return d.decodePackage(el)
	case model.TypePartDefinition:
		def := &PartDef{Name: elementName(el)}
		def.Specializes = d.heritageNames(el)
		for _, memberID := range d.orderedMembers(model.ID(el)) {
			child, ok := d.byID[memberID]
			if !ok {
				continue
			}
			if body, ok := docBody(child); ok {
				def.Doc = body
				continue
			}
			if member := d.decodeMember(child); member != nil {
				def.Members = append(def.Members, member)
			}
		}
		return def
	case model.TypeAttributeDefinition:
		return &AttrDef{
			Name:        elementName(el),
			Specializes: d.heritageNames(el),
		}
	case model.TypePartUsage:
		usage := &PartUsage{
			Name:         elementName(el),
			TypeName:     d.typeName(el),
			Multiplicity: decodeMultiplicity(el),
		}
		for _, memberID := range d.orderedMembers(model.ID(el)) {
			child, ok := d.byID[memberID]
			if !ok {
				continue
			}
			if member := d.decodeMember(child); member != nil {
				usage.Members = append(usage.Members, member)
			}
		}
		return usage
	case model.TypeAttributeUsage:
		return &AttrUsage{
			Name:         elementName(el),
			TypeName:     d.typeName(el),
			Multiplicity: decodeMultiplicity(el),
			Value:        d.literalFor(el),
		}
	default:
		return nil
	}
}

func (d *decoder) heritageNames(el model.Element) []string {
	var names []string
	for _, generalID := range d.general[model.ID(el)] {
		if target, ok := d.byID[generalID]; ok {
			names = append(names, elementName(target))
		}
	}
	if declared, ok := el["declaredHeritage"].([]any); ok {
		for _, item := range declared {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// typeName resolves a feature's type through, in order: an explicit typing
// relationship, a "type" reference injected by cleanup inference, or the
// declared textual name for targets outside the document.
func (d *decoder) typeName(el model.Element) string {
	typeID := d.typing[model.ID(el)]
	if typeID == "" {
		typeID = model.FirstID(el["type"])
	}
	if typeID != "" {
		if target, ok := d.byID[typeID]; ok {
			return elementName(target)
		}
	}
	if declared, ok := el["declaredTypeName"].(string); ok {
		return declared
	}
	return ""
}

func (d *decoder) literalFor(el model.Element) *Literal {
	valueID := d.values[model.ID(el)]
	if valueID == "" {
		return nil
	}
	lit, ok := d.byID[valueID]
	if !ok {
		return nil
	}

	switch model.Type(lit) {
	case model.TypeLiteralString:
		text, _ := lit["value"].(string)
		return &Literal{Kind: LiteralString, Text: text}
	case model.TypeLiteralBoolean:
		b, _ := lit["value"].(bool)
		if b {
			return &Literal{Kind: LiteralBoolean, Text: kwTrue}
		}
		return &Literal{Kind: LiteralBoolean, Text: kwFalse}
	case model.TypeLiteralInteger, model.TypeLiteralRational:
		switch v := lit["value"].(type) {
		case string:
			return &Literal{Kind: LiteralNumber, Text: v}
		case float64:
			return &Literal{Kind: LiteralNumber, Text: formatNumber(v)}
		}
	}
	return nil
}

func decodeMultiplicity(el model.Element) *Multiplicity {
	lower, _ := el["lowerBound"].(string)
	upper, _ := el["upperBound"].(string)
	if lower == "" && upper == "" {
		return nil
	}
	if upper == "" {
		upper = lower
	}
	return &Multiplicity{Lower: lower, Upper: upper}
}

func elementName(el model.Element) string {
	if name, ok := el["name"].(string); ok && name != "" {
		return name
	}
	if qualified, ok := el["qualifiedName"].(string); ok {
		if idx := strings.LastIndex(qualified, "::"); idx >= 0 {
			return qualified[idx+2:]
		}
		return qualified
	}
	return model.ID(el)
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(fmt.Sprintf("%f", v), "0")
}

func firstIDOf(el model.Element, keys ...string) string {
	for _, key := range keys {
		if id := model.FirstID(el[key]); id != "" {
			return id
		}
	}
	return ""
}
