package catalog

var regions = []Region{
	{Number: 1, Name: "Tarapacá", Label: "Región de Tarapacá", RomanNumber: "I", Communes: []string{
		"Iquique", "Alto Hospicio", "Pozo Almonte", "Camiña", "Colchane", "Huara", "Pica",
	}},
	{Number: 2, Name: "Antofagasta", Label: "Región de Antofagasta", RomanNumber: "II", Communes: []string{
		"Antofagasta", "Mejillones", "Sierra Gorda", "Taltal", "Calama", "Ollagüe",
		"San Pedro de Atacama", "Tocopilla", "María Elena",
	}},
	{Number: 3, Name: "Atacama", Label: "Región de Atacama", RomanNumber: "III", Communes: []string{
		"Copiapó", "Caldera", "Tierra Amarilla", "Chañaral", "Diego de Almagro", "Vallenar",
		"Alto del Carmen", "Freirina", "Huasco",
	}},
	{Number: 4, Name: "Coquimbo", Label: "Región de Coquimbo", RomanNumber: "IV", Communes: []string{
		"La Serena", "Coquimbo", "Andacollo", "La Higuera", "Paiguano", "Vicuña", "Illapel",
		"Canela", "Los Vilos", "Salamanca", "Ovalle", "Combarbalá", "Monte Patria", "Punitaqui",
		"Río Hurtado",
	}},
	{Number: 5, Name: "Valparaíso", Label: "Región de Valparaíso", RomanNumber: "V", Communes: []string{
		"Valparaíso", "Casablanca", "Concón", "Juan Fernández", "Puchuncaví", "Quintero",
		"Viña del Mar", "Isla de Pascua", "Los Andes", "Calle Larga", "Rinconada", "San Esteban",
		"La Ligua", "Cabildo", "Papudo", "Petorca", "Zapallar", "Quillota", "La Calera",
		"Hijuelas", "La Cruz", "Nogales", "San Antonio", "Algarrobo", "Cartagena", "El Quisco",
		"El Tabo", "Santo Domingo", "San Felipe", "Catemu", "Llaillay", "Panquehue", "Putaendo",
		"Santa María", "Quilpué", "Limache", "Olmué", "Villa Alemana",
	}},
	{Number: 6, Name: "Libertador Bernardo O’Higgins", Label: "Región de O’Higgins", RomanNumber: "VI", Communes: []string{
		"Rancagua", "Codegua", "Coinco", "Coltauco", "Doñihue", "Graneros", "Las Cabras",
		"Machalí", "Malloa", "Mostazal", "Olivar", "Peumo", "Pichidegua", "Quinta de Tilcoco",
		"Rengo", "Requínoa", "San Vicente", "Pichilemu", "La Estrella", "Litueche", "Marchihue",
		"Navidad", "Paredones", "San Fernando", "Chépica", "Chimbarongo", "Lolol", "Nancagua",
		"Palmilla", "Peralillo", "Placilla", "Pumanque", "Santa Cruz",
	}},
	{Number: 7, Name: "Maule", Label: "Región del Maule", RomanNumber: "VII", Communes: []string{
		"Talca", "Constitución", "Curepto", "Empedrado", "Maule", "Pelarco", "Pencahue",
		"Río Claro", "San Clemente", "San Rafael", "Cauquenes", "Chanco", "Pelluhue", "Curicó",
		"Hualañé", "Licantén", "Molina", "Rauco", "Romeral", "Sagrada Familia", "Teno",
		"Vichuquén", "Linares", "Colbún", "Longaví", "Parral", "Retiro", "San Javier",
		"Villa Alegre", "Yerbas Buenas",
	}},
	{Number: 8, Name: "Biobío", Label: "Región del Biobío", RomanNumber: "VIII", Communes: []string{
		"Concepción", "Coronel", "Chiguayante", "Florida", "Hualqui", "Lota", "Penco",
		"San Pedro de la Paz", "Santa Juana", "Talcahuano", "Tomé", "Hualpén", "Lebu", "Arauco",
		"Cañete", "Contulmo", "Curanilahue", "Los Álamos", "Tirúa", "Los Ángeles", "Antuco",
		"Cabrero", "Laja", "Mulchén", "Nacimiento", "Negrete", "Quilaco", "Quilleco",
		"San Rosendo", "Santa Bárbara", "Tucapel", "Yumbel", "Alto Biobío",
	}},
	{Number: 9, Name: "La Araucanía", Label: "Región de La Araucanía", RomanNumber: "IX", Communes: []string{
		"Temuco", "Carahue", "Cunco", "Curarrehue", "Freire", "Galvarino", "Gorbea", "Lautaro",
		"Loncoche", "Melipeuco", "Nueva Imperial", "Padre Las Casas", "Perquenco", "Pitrufquén",
		"Pucón", "Saavedra", "Teodoro Schmidt", "Toltén", "Vilcún", "Villarrica", "Cholchol",
		"Angol", "Collipulli", "Curacautín", "Ercilla", "Lonquimay", "Los Sauces", "Lumaco",
		"Purén", "Renaico", "Traiguén", "Victoria",
	}},
	{Number: 10, Name: "Los Lagos", Label: "Región de Los Lagos", RomanNumber: "X", Communes: []string{
		"Puerto Montt", "Calbuco", "Cochamó", "Fresia", "Frutillar", "Los Muermos", "Llanquihue",
		"Maullín", "Puerto Varas", "Castro", "Ancud", "Chonchi", "Curaco de Vélez", "Dalcahue",
		"Puqueldón", "Queilén", "Quellón", "Quemchi", "Quinchao", "Osorno", "Puerto Octay",
		"Purranque", "Puyehue", "Río Negro", "San Juan de la Costa", "San Pablo", "Chaitén",
		"Futaleufú", "Hualaihué", "Palena",
	}},
	{Number: 11, Name: "Aysén", Label: "Región de Aysén del General Carlos Ibáñez del Campo", RomanNumber: "XI", Communes: []string{
		"Coyhaique", "Lago Verde", "Aysén", "Cisnes", "Guaitecas", "Cochrane", "O'Higgins",
		"Tortel", "Chile Chico", "Río Ibáñez",
	}},
	{Number: 12, Name: "Magallanes", Label: "Región de Magallanes y de la Antártica Chilena", RomanNumber: "XII", Communes: []string{
		"Punta Arenas", "Laguna Blanca", "Río Verde", "San Gregorio", "Cabo de Hornos",
		"Antártica", "Porvenir", "Primavera", "Timaukel", "Natales", "Torres del Paine",
	}},
	{Number: 13, Name: "Metropolitana", Label: "Región Metropolitana de Santiago", RomanNumber: "RM", Communes: []string{
		"Santiago", "Cerrillos", "Cerro Navia", "Conchalí", "El Bosque", "Estación Central",
		"Huechuraba", "Independencia", "La Cisterna", "La Florida", "La Granja", "La Pintana",
		"La Reina", "Las Condes", "Lo Barnechea", "Lo Espejo", "Lo Prado", "Macul", "Maipú",
		"Ñuñoa", "Pedro Aguirre Cerda", "Peñalolén", "Providencia", "Pudahuel", "Quilicura",
		"Quinta Normal", "Recoleta", "Renca", "San Joaquín", "San Miguel", "San Ramón",
		"Vitacura", "Puente Alto", "Pirque", "San José de Maipo", "Colina", "Lampa", "Tiltil",
		"San Bernardo", "Buin", "Calera de Tango", "Paine", "Melipilla", "Alhué", "Curacaví",
		"María Pinto", "San Pedro", "Talagante", "El Monte", "Isla de Maipo", "Padre Hurtado",
		"Peñaflor",
	}},
	{Number: 14, Name: "Los Ríos", Label: "Región de Los Ríos", RomanNumber: "XIV", Communes: []string{
		"Valdivia", "Corral", "Lanco", "Los Lagos", "Máfil", "Mariquina", "Paillaco",
		"Panguipulli", "La Unión", "Futrono", "Lago Ranco", "Río Bueno",
	}},
	{Number: 15, Name: "Arica y Parinacota", Label: "Región de Arica y Parinacota", RomanNumber: "XV", Communes: []string{
		"Arica", "Camarones", "Putre", "General Lagos",
	}},
	{Number: 16, Name: "Ñuble", Label: "Región de Ñuble", RomanNumber: "XVI", Communes: []string{
		"Chillán", "Bulnes", "Chillán Viejo", "El Carmen", "Pemuco", "Pinto", "Quillón",
		"San Ignacio", "Yungay", "Quirihue", "Cobquecura", "Coelemu", "Ninhue", "Portezuelo",
		"Ránquil", "Treguaco", "San Carlos", "Coihueco", "Ñiquén", "San Fabián", "San Nicolás",
	}},
}
