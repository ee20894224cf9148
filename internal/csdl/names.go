package csdl

// Namespace URIs of the EDMX/EDM document formats
const (
	EdmxNamespaceV4 = "http://docs.oasis-open.org/odata/ns/edmx"
	EdmNamespaceV4  = "http://docs.oasis-open.org/odata/ns/edm"
	EdmxNamespaceV2 = "http://schemas.microsoft.com/ado/2007/06/edmx"
	EdmNamespaceV2  = "http://schemas.microsoft.com/ado/2008/09/edm"
	SAPNamespace    = "http://www.sap.com/Protocols/SAPData"
)

// Element names
const (
	ElementEdmx                  = "Edmx"
	ElementReference             = "Reference"
	ElementInclude               = "Include"
	ElementDataServices          = "DataServices"
	ElementSchema                = "Schema"
	ElementAnnotations           = "Annotations"
	ElementAnnotation            = "Annotation"
	ElementCollection            = "Collection"
	ElementRecord                = "Record"
	ElementPropertyValue         = "PropertyValue"
	ElementApply                 = "Apply"
	ElementLabeledElement        = "LabeledElement"
	ElementEntityType            = "EntityType"
	ElementComplexType           = "ComplexType"
	ElementEnumType              = "EnumType"
	ElementTypeDefinition        = "TypeDefinition"
	ElementProperty              = "Property"
	ElementNavigationProperty    = "NavigationProperty"
	ElementEntityContainer       = "EntityContainer"
	ElementEntitySet             = "EntitySet"
	ElementSingleton             = "Singleton"
	ElementFunction              = "Function"
	ElementAction                = "Action"
	ElementFunctionImport        = "FunctionImport"
	ElementActionImport          = "ActionImport"
	ElementParameter             = "Parameter"
	ElementReturnType            = "ReturnType"
	ElementKey                   = "Key"
	ElementPropertyRef           = "PropertyRef"
	ElementAssociation           = "Association"
	ElementEnd                   = "End"
	ElementReferentialConstraint = "ReferentialConstraint"
)

// Attribute names
const (
	AttributeTarget     = "Target"
	AttributeTerm       = "Term"
	AttributeQualifier  = "Qualifier"
	AttributeName       = "Name"
	AttributeNamespace  = "Namespace"
	AttributeAlias      = "Alias"
	AttributeURI        = "Uri"
	AttributeType       = "Type"
	AttributePath       = "Path"
	AttributeProperty   = "Property"
	AttributeVersion    = "Version"
	AttributeIsBound    = "IsBound"
	AttributeReturnType = "ReturnType"
)

// Kinds used for synthesized metadata elements and target kinds
const (
	ReturnTypeName       = "$ReturnType"
	BindingParameterName = "_it"
	KindCollection       = "Collection"
)
